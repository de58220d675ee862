package export

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/shakegrid/internal/recorder"
	"github.com/specialistvlad/shakegrid/internal/simerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult() *recorder.RunResult {
	return &recorder.RunResult{
		ScenarioName: "babai",
		RunID:        "r1",
		Series: map[recorder.Metric][]recorder.Sample{
			recorder.Settlement: {{Time: 0.04, Value: 0.001}, {Time: 0.08, Value: 0.0015}},
			recorder.Force:      {{Time: 0, Value: 0}, {Time: 0.25, Value: 2000}},
		},
	}
}

func TestCSV_Export(t *testing.T) {
	// --- Arrange ---
	dir := filepath.Join(t.TempDir(), "nested", "out")
	exp := NewCSV(dir)

	// --- Act ---
	paths, err := exp.Export(context.Background(), testResult())

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "babai_settlement.csv"),
		filepath.Join(dir, "babai_force.csv"),
	}, paths)

	got, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "Time,Settlement\n0.04,0.001\n0.08,0.0015\n", string(got))

	got, err = os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "Time,Force\n0,0\n0.25,2000\n", string(got))
}

func TestCSV_ExportSelectedMetrics(t *testing.T) {
	dir := t.TempDir()
	exp := NewCSV(dir, recorder.Porosity, recorder.Force)

	paths, err := exp.Export(context.Background(), testResult())

	require.NoError(t, err)
	require.Len(t, paths, 2)
	got, err := os.ReadFile(filepath.Join(dir, "babai_porosity.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Time,Porosity\n", string(got), "a selected metric without samples still gets its header")
}

func TestCSV_ExportFailureKeepsResult(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	result := testResult()
	before := testResult()

	_, err := NewCSV(filepath.Join(blocker, "out")).Export(context.Background(), result)

	require.ErrorIs(t, err, simerr.ErrExportFailure)
	assert.Empty(t, cmp.Diff(before, result))

	retry := t.TempDir()
	paths, err := NewCSV(retry).Export(context.Background(), result)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestUploader_Upload(t *testing.T) {
	// --- Arrange ---
	var mu sync.Mutex
	received := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.NotEmpty(t, r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received[r.URL.Path] = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	paths, err := NewCSV(t.TempDir()).Export(context.Background(), testResult())
	require.NoError(t, err)

	// --- Act ---
	urls, err := NewUploader(srv.URL+"/bucket/").Upload(context.Background(), paths)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/bucket/babai_settlement.csv", srv.URL + "/bucket/babai_force.csv"}, urls)
	assert.Equal(t, "Time,Force\n0,0\n0.25,2000\n", received["/bucket/babai_force.csv"])
}

func TestUploader_UploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	paths, err := NewCSV(t.TempDir()).Export(context.Background(), testResult())
	require.NoError(t, err)

	urls, err := NewUploader(srv.URL).Upload(context.Background(), paths)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Empty(t, urls)
}
