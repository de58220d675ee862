package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/shakegrid/internal/cli"
	"github.com/specialistvlad/shakegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A syntax error makes scenario loading panic inside app.NewApp().
	invalidHCL := `
		scenario "broken" {
			particle_count = 10
		// Missing closing brace here
	`
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": invalidHCL})
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, []string{filepath.Join(dir, "main.hcl")})

	// --- Assert ---
	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	assert.Contains(t, runErr.Error(), "application startup panicked")
	assert.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_Batch(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := testutil.WriteFiles(t, map[string]string{
		"quick.hcl": testutil.SmallScenarioHCL,
		"bad.yaml": `
scenarios:
  - name: bad
    friction_angle: 95
`,
	})
	outDir := filepath.Join(t.TempDir(), "results")
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-out", outDir, "-workers", "2", dir})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "a failed scenario makes the process exit non-zero")
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, exitErr.Message, "1 of 2 scenarios failed")

	_, statErr := os.Stat(filepath.Join(outDir, "quick", "quick_settlement.csv"))
	require.NoError(t, statErr, "the valid scenario still ran")
	assert.Contains(t, out.String(), "friction_angle")
}
