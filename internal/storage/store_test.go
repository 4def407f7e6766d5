package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/breathsim/internal/config"
	"github.com/san-kum/breathsim/internal/experiment"
)

func testResult() *experiment.Result {
	cfg := config.DefaultConfig()
	cfg.GridSize = 2
	cfg.TMax = 1
	cfg.NTimes = 3

	res := experiment.NewResult(cfg,
		[]float64{0, 0.5, 1},
		[][]float64{{0.1, 0.2, 1.0 / 3}, {-3.14, -3.0, -2.5}},
		[][]float64{{0.05, 0.06, 0.07}, {-0.1, 0, 0.1}},
		map[string]float64{"energy_drift": 1e-4},
	)
	res.Stats.Steps = 12
	res.Elapsed = 1500 * time.Millisecond
	return res
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	res := testResult()
	runID, err := st.Save("baseline", res)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	for _, name := range []string{metadataFile, fieldFile, velocityFile} {
		assert.FileExists(t, filepath.Join(st.baseDir, runID, name))
	}

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "baseline", meta.Label)
	assert.Equal(t, int64(42), meta.Config.Seed)
	assert.Equal(t, 2, meta.Config.GridSize)
	assert.Equal(t, 3, meta.Samples)
	assert.Equal(t, 12, meta.Steps)
	assert.Equal(t, int64(1500), meta.ElapsedMS)
	assert.Equal(t, 1e-4, meta.Metrics["energy_drift"])

	times, field, err := st.LoadField(runID)
	require.NoError(t, err)
	assert.Equal(t, res.Times, times)
	assert.Equal(t, res.Field, field, "field values must survive the round trip exactly")

	loaded, err := st.LoadResult(runID)
	require.NoError(t, err)
	assert.Equal(t, res.Velocity, loaded.Velocity)
	assert.Equal(t, 12, loaded.Stats.Steps)
	assert.Equal(t, res.Config, loaded.Config)
}

func TestStoreResolvePrefix(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.Save("", testResult())
	require.NoError(t, err)

	id, err := st.Resolve(runID[:8])
	require.NoError(t, err)
	assert.Equal(t, runID, id)

	_, err = st.Load("zzzzzzzz")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = st.Resolve("")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs, "missing base dir lists as empty")

	require.NoError(t, st.Init())
	first, err := st.Save("first", testResult())
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := st.Save("second", testResult())
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(st.baseDir, "junk"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.Len(t, runs[0].ShortID(), 8)
}

func TestGridCSV(t *testing.T) {
	var buf bytes.Buffer
	times := []float64{0, 0.25}
	rows := [][]float64{{1, 2}, {3, 4}, {5, 6}}

	require.NoError(t, WriteGridCSV(&buf, times, rows))
	assert.Equal(t, "site,0,0.25\n0,1,2\n1,3,4\n2,5,6\n", buf.String())

	gotTimes, gotRows, err := ReadGridCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, times, gotTimes)
	assert.Equal(t, rows, gotRows)
}

func TestGridCSVRaggedRow(t *testing.T) {
	var buf bytes.Buffer
	err := WriteGridCSV(&buf, []float64{0, 1}, [][]float64{{1}})
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, testResult()))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, 12, data.Steps)
	assert.Len(t, data.Field, 2)
	assert.Len(t, data.Field[0], 3)
	assert.Equal(t, 2, data.Config.GridSize)
}
