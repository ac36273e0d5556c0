package storage

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/essim/internal/experiment"
)

func sampleSeries() []experiment.Series {
	return []experiment.Series{
		{Name: "t", Values: []float64{0, 0.01, 0.02}},
		{Name: "es0.theta[0]", Values: []float64{0.1, 0.0999, 1e-12}},
		{Name: "lag0.x[0]", Values: []float64{1, math.Inf(1)}},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	meta := RunMetadata{
		Scenario:    "quadratic_1d",
		Dt:          0.01,
		Steps:       3,
		Completed:   3,
		Controllers: []string{"es0"},
		Objectives:  []string{"obj0"},
		Setpoints:   map[string][]float64{"es0": {4.99}},
		Metrics:     map[string]float64{"final_cost": 0.01},
	}
	runID, err := st.Save(meta, sampleSeries())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(runID, "quadratic_1d_"))

	loaded, err := st.Load(runID)
	require.NoError(t, err)
	require.Equal(t, runID, loaded.ID)
	require.Equal(t, 3, loaded.Steps)
	require.Equal(t, 0.01, loaded.Metrics["final_cost"])
	require.Equal(t, []float64{4.99}, loaded.Setpoints["es0"])
	require.WithinDuration(t, time.Now(), loaded.Timestamp, time.Minute)

	series, err := st.LoadSeries(runID)
	require.NoError(t, err)
	require.Equal(t, sampleSeries(), series)
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	require.NoError(t, err)
	require.Empty(t, runs)
	_, err = st.Latest()
	require.Error(t, err)

	first, err := st.Save(RunMetadata{Scenario: "a"}, sampleSeries())
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := st.Save(RunMetadata{Scenario: "b"}, sampleSeries())
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, os.MkdirAll(filepath.Join(st.Dir(), "junk"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second, runs[0].ID)

	latest, err := st.Latest()
	require.NoError(t, err)
	require.Equal(t, second, latest)
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("nope")
	require.Error(t, err)
	_, err = st.LoadSeries("nope")
	require.Error(t, err)
}

func TestDefaultRunName(t *testing.T) {
	st := New(t.TempDir())
	id, err := st.Save(RunMetadata{}, nil)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "run_"))

	series, err := st.LoadSeries(id)
	require.NoError(t, err)
	require.Empty(t, series)
}
