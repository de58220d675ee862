package harness

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/engine/settle"
	"github.com/specialistvlad/shakegrid/internal/export"
	"github.com/specialistvlad/shakegrid/internal/recorder"
	"github.com/specialistvlad/shakegrid/internal/scenario"
	"github.com/specialistvlad/shakegrid/internal/simerr"
	"github.com/specialistvlad/shakegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quickConfig is 20 steps of 0.2 s, sampled every 10 steps.
func quickConfig(t *testing.T) scenario.Config {
	t.Helper()
	c := scenario.Defaults()
	c.Name = "quick"
	c.ParticleCount = 20
	c.DurationSeconds = 4
	c.StepsPerCycle = 10
	cfg, err := scenario.New(c)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.TotalSteps())
	return cfg
}

// readCSV returns the header and the rows of an exported file.
func readCSV(t *testing.T, path string) ([]string, [][]float64) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	rows := make([][]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]float64, len(rec))
		for i, field := range rec {
			row[i], err = strconv.ParseFloat(field, 64)
			require.NoError(t, err)
		}
		rows = append(rows, row)
	}
	return records[0], rows
}

func requireIncreasingTime(t *testing.T, rows [][]float64) {
	t.Helper()
	for i := 1; i < len(rows); i++ {
		require.Greater(t, rows[i][0], rows[i-1][0], "row %d", i)
	}
}

func TestStart_ReferenceExperiment(t *testing.T) {
	// --- Arrange ---
	cfg, err := scenario.FromPreset("babai")
	require.NoError(t, err)
	dir := t.TempDir()
	h, err := New(cfg, settle.New(), export.NewCSV(dir, cfg.Metrics...))
	require.NoError(t, err)

	// --- Act ---
	report, err := h.Start(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, Completed, report.State)
	assert.Equal(t, Completed, h.State())
	assert.Equal(t, 1500, report.Steps)
	assert.InDelta(t, 60, report.SimTime, 1e-6)
	assert.Equal(t, 1500, report.Samples[recorder.Force])
	assert.Equal(t, 30, report.Samples[recorder.Settlement])
	require.Len(t, report.Files, len(recorder.AllMetrics))

	for _, m := range []recorder.Metric{recorder.Settlement, recorder.Force, recorder.SettlementRate} {
		header, rows := readCSV(t, filepath.Join(dir, "babai_"+string(m)+".csv"))
		assert.Equal(t, []string{"Time", m.Label()}, header)
		require.NotEmpty(t, rows, "metric %s", m)
		requireIncreasingTime(t, rows)
	}
	_, settlement := readCSV(t, filepath.Join(dir, "babai_settlement.csv"))
	for _, row := range settlement {
		assert.GreaterOrEqual(t, row[1], 0.0)
	}
	_, rate := readCSV(t, filepath.Join(dir, "babai_settlement_rate.csv"))
	assert.Zero(t, rate[0][1], "first rate is zero")

	for _, m := range recorder.AllMetrics {
		assert.Zero(t, h.Result().Len(m), "buffers are cleared after export")
	}
}

func TestStart_CancelMidRun(t *testing.T) {
	// --- Arrange ---
	cfg := quickConfig(t)
	dir := t.TempDir()
	eng := testutil.NewFakeEngine()
	cancelAt := WithStepHandler(1, StepHandlerFunc(func(_ context.Context, sc StepContext) error {
		if sc.Step == 15 {
			sc.Cancel()
		}
		return nil
	}))
	h, err := New(cfg, eng, export.NewCSV(dir), cancelAt)
	require.NoError(t, err)

	// --- Act ---
	report, err := h.Start(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, Cancelled, report.State)
	assert.Equal(t, "cancel requested", report.Reason)
	assert.Equal(t, 15, report.Steps)
	assert.True(t, eng.Closed)

	_, rows := readCSV(t, filepath.Join(dir, "quick_settlement.csv"))
	require.Len(t, rows, 1)
	assert.InDelta(t, 2.0, rows[0][0], 1e-9)

	_, force := readCSV(t, filepath.Join(dir, "quick_force.csv"))
	require.Len(t, force, 15)
	requireIncreasingTime(t, force)
	assert.Less(t, force[len(force)-1][0], 3.0)
}

func TestStart_ContextCancelled(t *testing.T) {
	cfg := quickConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := New(cfg, testutil.NewFakeEngine(), export.NewCSV(t.TempDir()),
		WithStepHandler(5, StepHandlerFunc(func(context.Context, StepContext) error {
			cancel()
			return nil
		})))
	require.NoError(t, err)

	report, err := h.Start(ctx)

	require.NoError(t, err)
	assert.Equal(t, Cancelled, report.State)
	assert.Equal(t, 5, report.Steps)
	assert.Contains(t, report.Reason, "context canceled")
}

func TestStart_EngineFailureExportsPartialData(t *testing.T) {
	// --- Arrange ---
	cfg := quickConfig(t)
	dir := t.TempDir()
	eng := testutil.NewFakeEngine()
	eng.OnStep = func(step int, _ *testutil.FakeEngine) error {
		if step == 13 {
			return errors.New("numerical divergence")
		}
		return nil
	}
	h, err := New(cfg, eng, export.NewCSV(dir))
	require.NoError(t, err)

	// --- Act ---
	report, err := h.Start(context.Background())

	// --- Assert ---
	require.ErrorIs(t, err, simerr.ErrEngineFailure)
	var se *simerr.ScenarioError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "quick", se.Scenario)
	assert.Equal(t, 13, se.Step)
	assert.Contains(t, err.Error(), "numerical divergence")

	assert.Equal(t, Failed, report.State)
	assert.Equal(t, Failed, h.State())
	assert.Equal(t, 12, report.Steps)
	assert.Equal(t, 13, report.Samples[recorder.Force])
	assert.True(t, eng.Closed)

	_, rows := readCSV(t, filepath.Join(dir, "quick_settlement.csv"))
	assert.Len(t, rows, 1)
}

func TestStart_LoadFailure(t *testing.T) {
	cfg := quickConfig(t)
	dir := filepath.Join(t.TempDir(), "out")
	eng := testutil.NewFakeEngine()
	eng.LoadErr = errors.New("server refused particles")
	h, err := New(cfg, eng, export.NewCSV(dir))
	require.NoError(t, err)

	report, err := h.Start(context.Background())

	require.ErrorIs(t, err, simerr.ErrEngineFailure)
	assert.Equal(t, Failed, report.State)
	assert.Zero(t, report.Steps)
	assert.Empty(t, report.Files)
	assert.NoDirExists(t, dir)
	assert.True(t, eng.Closed)
}

func TestStart_ExportFailureKeepsSamples(t *testing.T) {
	cfg := quickConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	h, err := New(cfg, testutil.NewFakeEngine(), export.NewCSV(filepath.Join(blocker, "out")))
	require.NoError(t, err)

	report, err := h.Start(context.Background())

	require.ErrorIs(t, err, simerr.ErrExportFailure)
	assert.Equal(t, Completed, report.State)
	result := h.Result()
	assert.Equal(t, 20, result.Len(recorder.Force))
	assert.Equal(t, 2, result.Len(recorder.Settlement))

	files, err := export.NewCSV(t.TempDir()).Export(context.Background(), result)
	require.NoError(t, err)
	assert.Len(t, files, len(recorder.AllMetrics))
}

func TestStart_ShearPolicy(t *testing.T) {
	c := quickConfig(t)
	c.ParticleCount = 200
	c.Load.Policy = scenario.ShearLoad
	cfg, err := scenario.New(c)
	require.NoError(t, err)

	eng := testutil.NewFakeEngine()
	var sheared int
	eng.OnStep = func(_ int, f *testutil.FakeEngine) error {
		for i, force := range f.ParticleForces {
			assert.Greater(t, f.Pos[i][engine.Z], 0.09)
			assert.Zero(t, force[engine.Z])
			sheared++
		}
		return nil
	}
	h, err := New(cfg, eng, export.NewCSV(t.TempDir()))
	require.NoError(t, err)

	_, err = h.Start(context.Background())

	require.NoError(t, err)
	assert.Positive(t, sheared)
	assert.Empty(t, eng.BoundaryForces, "shear loading leaves the walls alone")
}

func TestStart_Twice(t *testing.T) {
	h, err := New(quickConfig(t), testutil.NewFakeEngine(), export.NewCSV(t.TempDir()))
	require.NoError(t, err)
	_, err = h.Start(context.Background())
	require.NoError(t, err)

	_, err = h.Start(context.Background())
	require.ErrorIs(t, err, simerr.ErrAlreadyStarted)
	assert.Equal(t, Completed, h.State())
}

func TestNew_Invalid(t *testing.T) {
	cfg := quickConfig(t)

	bad := cfg
	bad.Name = ""
	_, err := New(bad, testutil.NewFakeEngine(), export.NewCSV(t.TempDir()))
	require.ErrorIs(t, err, simerr.ErrInvalidConfig)

	_, err = New(cfg, testutil.NewFakeEngine(), export.NewCSV(t.TempDir()), WithStepHandler(0, StepHandlerFunc(nil)))
	require.ErrorIs(t, err, simerr.ErrInvalidConfig)

	_, err = New(cfg, nil, export.NewCSV(t.TempDir()))
	require.Error(t, err)
}

func TestStart_LogsCarryRunAttributes(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h, err := New(quickConfig(t), testutil.NewFakeEngine(), export.NewCSV(t.TempDir()),
		WithLogger(logger), WithRunID("run-42"))
	require.NoError(t, err)
	assert.Equal(t, "run-42", h.RunID())

	_, err = h.Start(context.Background())

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "scenario=quick")
	assert.Contains(t, out, "run_id=run-42")
	assert.Contains(t, out, "msg=Sampled.")
	assert.Contains(t, out, "state=completed")
	assert.Contains(t, out, "msg=\"Packing generated.\"")
	assert.Contains(t, out, "invocations=21")
}

func TestStart_PassesSpacingHintToEngine(t *testing.T) {
	cfg := quickConfig(t)
	eng := testutil.NewFakeEngine()
	h, err := New(cfg, eng, export.NewCSV(t.TempDir()))
	require.NoError(t, err)

	_, err = h.Start(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 2.2*cfg.Material.MeanRadius, eng.Setup.SpacingHint, 1e-12, "loose packing hint")
	assert.Len(t, eng.Setup.Particles, cfg.ParticleCount)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, Cancelled.Terminal())
	assert.False(t, Running.Terminal())
}
