package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/shakegrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenarios.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func ptr[T any](v T) *T { return &v }

func TestLoadFile_SoilAndScenario(t *testing.T) {
	// --- Arrange ---
	path := writeFile(t, `
soil "babai" {
  density        = 1700
  friction_angle = 28
  young_modulus  = 5e6
  poisson_ratio  = 0.3
  mean_radius    = 0.002
  radius_fuzz    = 0.5
}

scenario "babai_cyclic" {
  soil               = "babai"
  domain_size        = [0.1, 0.1, 0.1]
  particle_count     = 1500
  grain_distribution = "poorly_graded"
  seed               = 5
  duration_seconds   = 60
  steps_per_cycle    = 50
  friction_angle     = 30
  max_wall_clock     = "5m"
  metrics            = ["settlement", "force"]

  load {
    policy       = "boundary"
    frequency_hz = 0.5
    amplitude    = 2000
  }
}
`)
	model := config.NewModel()

	// --- Act ---
	err := NewLoader().LoadFile(context.Background(), path, model)

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, model.Soils, "babai")
	assert.Equal(t, 1700.0, *model.Soils["babai"].Density)
	assert.Equal(t, 0.5, *model.Soils["babai"].RadiusFuzz)

	require.Len(t, model.Scenarios, 1)
	expected := &config.Scenario{
		Name:              "babai_cyclic",
		Source:            path,
		Soil:              "babai",
		DomainSize:        []float64{0.1, 0.1, 0.1},
		ParticleCount:     ptr(1500),
		GrainDistribution: ptr("poorly_graded"),
		Seed:              ptr(int64(5)),
		FrictionAngleDeg:  ptr(30.0),
		Load: &config.Load{
			Policy:      ptr("boundary"),
			FrequencyHz: ptr(0.5),
			Amplitude:   ptr(2000.0),
		},
		DurationSeconds: ptr(60.0),
		StepsPerCycle:   ptr(50),
		MaxWallClock:    ptr("5m"),
		Metrics:         []string{"settlement", "force"},
	}
	if diff := cmp.Diff(expected, model.Scenarios[0]); diff != "" {
		t.Errorf("scenario mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_SweepWithFunctions(t *testing.T) {
	path := writeFile(t, `
scenario "sweep" {
  soil = "babai"
  sweep = {
    grain_distribution = ["uniform", "well_graded"]
    frequency_hz       = range(0.5, 1.5, 0.5)
    seed               = [1, 2, 3]
    load_policy        = [lower("SHEAR")]
  }
}
`)
	model := config.NewModel()

	require.NoError(t, NewLoader().LoadFile(context.Background(), path, model))
	require.Len(t, model.Scenarios, 1)

	expected := &config.Sweep{
		GrainDistributions: []string{"uniform", "well_graded"},
		LoadPolicies:       []string{"shear"},
		FrequenciesHz:      []float64{0.5, 1.0},
		Seeds:              []int64{1, 2, 3},
	}
	if diff := cmp.Diff(expected, model.Scenarios[0].Sweep); diff != "" {
		t.Errorf("sweep mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "syntax error",
			content: `scenario "x" {`,
			errText: "failed to parse HCL file",
		},
		{
			name:    "unknown attribute",
			content: `scenario "x" { colour = "red" }`,
			errText: "failed to decode HCL file",
		},
		{
			name:    "unknown sweep axis",
			content: `scenario "x" { sweep = { humidity = [1, 2] } }`,
			errText: `unknown sweep axis "humidity"`,
		},
		{
			name:    "sweep not an object",
			content: `scenario "x" { sweep = [1, 2] }`,
			errText: "sweep must be an object of lists",
		},
		{
			name:    "sweep wrong element type",
			content: `scenario "x" { sweep = { frequency_hz = ["fast"] } }`,
			errText: `sweep axis "frequency_hz"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewLoader().LoadFile(context.Background(), writeFile(t, tc.content), config.NewModel())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errText)
		})
	}
}

func TestMultiLoader_DiscoversHCLFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`scenario "a" {}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(`scenario "b" {}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte(`# not a scenario`), 0644))

	model, err := config.NewMultiLoader(NewLoader()).Load(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, model.Scenarios, 2)
	assert.Equal(t, "a", model.Scenarios[0].Name)
	assert.Equal(t, "b", model.Scenarios[1].Name)
}
