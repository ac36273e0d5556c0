package export

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/san-kum/essim/internal/experiment"
	"github.com/san-kum/essim/internal/storage"
)

type ExportData struct {
	Run    storage.RunMetadata `json:"run"`
	Series []SeriesData        `json:"series"`
}

type SeriesData struct {
	Name   string      `json:"name"`
	Values []jsonFloat `json:"values"`
}

// jsonFloat encodes NaN and infinities as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func NewExportData(meta storage.RunMetadata, series []experiment.Series) ExportData {
	data := ExportData{Run: meta, Series: make([]SeriesData, len(series))}
	for i, s := range series {
		vals := make([]jsonFloat, len(s.Values))
		for j, v := range s.Values {
			vals[j] = jsonFloat(v)
		}
		data.Series[i] = SeriesData{Name: s.Name, Values: vals}
	}
	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(data), "encode run")
}

// WriteJSONFile writes to path, or to stdout when path is "-".
func WriteJSONFile(path string, data ExportData) error {
	if path == "-" {
		return WriteJSON(os.Stdout, data)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()
	return WriteJSON(f, data)
}
