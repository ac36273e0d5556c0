package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/pkg/errors"

	"github.com/san-kum/essim/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
)

type Store struct {
	baseDir string
	ids     *uuid.Gen
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, ids: uuid.NewGen()}
}

func (s *Store) Init() error {
	return errors.Wrap(os.MkdirAll(s.baseDir, 0755), "create data dir")
}

func (s *Store) Dir() string { return s.baseDir }

// RunMetadata describes a stored run. ID and Timestamp are set by Save.
type RunMetadata struct {
	ID          string               `json:"id"`
	Scenario    string               `json:"scenario"`
	Timestamp   time.Time            `json:"timestamp"`
	T0          float64              `json:"t0"`
	Dt          float64              `json:"dt"`
	Steps       int                  `json:"steps"`
	Completed   int                  `json:"completed"`
	Controllers []string             `json:"controllers"`
	Objectives  []string             `json:"objectives"`
	Setpoints   map[string][]float64 `json:"setpoints,omitempty"`
	Metrics     map[string]float64   `json:"metrics"`
	Elapsed     string               `json:"elapsed,omitempty"`
}

// Save writes meta and the series under a new run directory and returns
// the run ID.
func (s *Store) Save(meta RunMetadata, series []experiment.Series) (string, error) {
	id, err := s.ids.NewV6()
	if err != nil {
		return "", errors.Wrap(err, "generate run id")
	}
	name := meta.Scenario
	if name == "" {
		name = "run"
	}
	meta.ID = fmt.Sprintf("%s_%s", name, id)
	meta.Timestamp = time.Now()

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", errors.Wrapf(err, "create run dir %s", runDir)
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, seriesFile), series); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return errors.Wrapf(enc.Encode(v), "encode %s", path)
}

// writeSeries stores one column per series. Shorter series leave their
// trailing cells empty.
func writeSeries(path string, series []experiment.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(series))
	rows := 0
	for i, s := range series {
		header[i] = s.Name
		rows = max(rows, len(s.Values))
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}

	record := make([]string, len(series))
	for r := 0; r < rows; r++ {
		for i, s := range series {
			record[i] = ""
			if r < len(s.Values) {
				record[i] = strconv.FormatFloat(s.Values[r], 'g', -1, 64)
			}
		}
		if err := w.Write(record); err != nil {
			return errors.Wrapf(err, "write row %d", r)
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush series")
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, errors.Wrap(err, "read data dir")
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	path := filepath.Join(s.baseDir, runID, metadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read run %s", runID)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "decode run %s", runID)
	}
	return &meta, nil
}

// Latest returns the ID of the newest run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no stored runs")
	}
	return runs[0].ID, nil
}

func (s *Store) LoadSeries(runID string) ([]experiment.Series, error) {
	path := filepath.Join(s.baseDir, runID, seriesFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open series of %s", runID)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "read series of %s", runID)
	}
	if len(records) == 0 {
		return []experiment.Series{}, nil
	}

	series := make([]experiment.Series, len(records[0]))
	for i, name := range records[0] {
		series[i] = experiment.Series{Name: name, Values: make([]float64, 0, len(records)-1)}
	}
	for n, record := range records[1:] {
		for i, cell := range record {
			if i >= len(series) || cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "series %s row %d", series[i].Name, n)
			}
			series[i].Values = append(series[i].Values, v)
		}
	}
	return series, nil
}
