// Package yamlconf implements config.Loader for YAML scenario files. It
// accepts the same vocabulary as the HCL format, with soils keyed by name
// and scenarios as a list:
//
//	soils:
//	  babai: {density: 1700, friction_angle: 28}
//	scenarios:
//	  - name: babai_cyclic
//	    soil: babai
//	    load: {frequency_hz: 0.5, amplitude: 2000}
//	    sweep: {grain_distribution: [uniform, well_graded]}
package yamlconf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/specialistvlad/shakegrid/internal/config"
	"github.com/specialistvlad/shakegrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

type fileRoot struct {
	Soils     map[string]soilDoc `yaml:"soils"`
	Scenarios []scenarioDoc      `yaml:"scenarios"`
}

type soilDoc struct {
	Density          *float64 `yaml:"density"`
	FrictionAngleDeg *float64 `yaml:"friction_angle"`
	YoungModulus     *float64 `yaml:"young_modulus"`
	PoissonRatio     *float64 `yaml:"poisson_ratio"`
	MeanRadius       *float64 `yaml:"mean_radius"`
	RadiusFuzz       *float64 `yaml:"radius_fuzz"`
}

type loadDoc struct {
	Policy         *string  `yaml:"policy"`
	FrequencyHz    *float64 `yaml:"frequency_hz"`
	Amplitude      *float64 `yaml:"amplitude"`
	ShearThreshold *float64 `yaml:"shear_threshold"`
}

type sweepDoc struct {
	GrainDistributions []string  `yaml:"grain_distribution"`
	PackingDensities   []string  `yaml:"packing_density"`
	LoadPolicies       []string  `yaml:"load_policy"`
	FrequenciesHz      []float64 `yaml:"frequency_hz"`
	Amplitudes         []float64 `yaml:"amplitude"`
	Seeds              []int64   `yaml:"seed"`
}

type scenarioDoc struct {
	Name      string  `yaml:"name"`
	Soil      string  `yaml:"soil"`
	Engine    *string `yaml:"engine"`
	EngineURL *string `yaml:"engine_url"`

	DomainSize        []float64 `yaml:"domain_size"`
	ParticleCount     *int      `yaml:"particle_count"`
	PackingDensity    *string   `yaml:"packing_density"`
	GrainDistribution *string   `yaml:"grain_distribution"`
	Seed              *int64    `yaml:"seed"`

	Density          *float64 `yaml:"density"`
	FrictionAngleDeg *float64 `yaml:"friction_angle"`
	YoungModulus     *float64 `yaml:"young_modulus"`
	PoissonRatio     *float64 `yaml:"poisson_ratio"`
	MeanRadius       *float64 `yaml:"mean_radius"`
	RadiusFuzz       *float64 `yaml:"radius_fuzz"`

	Load *loadDoc `yaml:"load"`

	DurationSeconds     *float64  `yaml:"duration_seconds"`
	StepsPerCycle       *int      `yaml:"steps_per_cycle"`
	SampleEvery         *int      `yaml:"sample_every"`
	SettlementThreshold *float64  `yaml:"settlement_threshold"`
	TimeStep            *float64  `yaml:"time_step"`
	Damping             *float64  `yaml:"damping"`
	Gravity             []float64 `yaml:"gravity"`
	MaxWallClock        *string   `yaml:"max_wall_clock"`
	Metrics             []string  `yaml:"metrics"`

	Sweep *sweepDoc `yaml:"sweep"`
}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new YAML loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// LoadFile implements config.Loader. Unknown keys are rejected.
func (l *Loader) LoadFile(ctx context.Context, path string, into *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing YAML scenario file.", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open YAML file %s: %w", path, err)
	}
	defer file.Close()

	var root fileRoot
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}

	names := make([]string, 0, len(root.Soils))
	for name := range root.Soils {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := root.Soils[name]
		into.Soils[name] = &config.Soil{
			Name:             name,
			Density:          s.Density,
			FrictionAngleDeg: s.FrictionAngleDeg,
			YoungModulus:     s.YoungModulus,
			PoissonRatio:     s.PoissonRatio,
			MeanRadius:       s.MeanRadius,
			RadiusFuzz:       s.RadiusFuzz,
		}
	}

	for i, doc := range root.Scenarios {
		if doc.Name == "" {
			return fmt.Errorf("in %s: scenario #%d has no name", path, i+1)
		}
		into.Scenarios = append(into.Scenarios, doc.translate(path))
	}

	logger.Debug("YAML scenario file loaded.", "path", path, "soils", len(root.Soils), "scenarios", len(root.Scenarios))
	return nil
}

func (d scenarioDoc) translate(source string) *config.Scenario {
	out := &config.Scenario{
		Name:                d.Name,
		Source:              source,
		Soil:                d.Soil,
		Engine:              d.Engine,
		EngineURL:           d.EngineURL,
		DomainSize:          d.DomainSize,
		ParticleCount:       d.ParticleCount,
		PackingDensity:      d.PackingDensity,
		GrainDistribution:   d.GrainDistribution,
		Seed:                d.Seed,
		Density:             d.Density,
		FrictionAngleDeg:    d.FrictionAngleDeg,
		YoungModulus:        d.YoungModulus,
		PoissonRatio:        d.PoissonRatio,
		MeanRadius:          d.MeanRadius,
		RadiusFuzz:          d.RadiusFuzz,
		DurationSeconds:     d.DurationSeconds,
		StepsPerCycle:       d.StepsPerCycle,
		SampleEvery:         d.SampleEvery,
		SettlementThreshold: d.SettlementThreshold,
		TimeStep:            d.TimeStep,
		Damping:             d.Damping,
		Gravity:             d.Gravity,
		MaxWallClock:        d.MaxWallClock,
		Metrics:             d.Metrics,
	}
	if d.Load != nil {
		out.Load = &config.Load{
			Policy:         d.Load.Policy,
			FrequencyHz:    d.Load.FrequencyHz,
			Amplitude:      d.Load.Amplitude,
			ShearThreshold: d.Load.ShearThreshold,
		}
	}
	if d.Sweep != nil {
		out.Sweep = &config.Sweep{
			GrainDistributions: d.Sweep.GrainDistributions,
			PackingDensities:   d.Sweep.PackingDensities,
			LoadPolicies:       d.Sweep.LoadPolicies,
			FrequenciesHz:      d.Sweep.FrequenciesHz,
			Amplitudes:         d.Sweep.Amplitudes,
			Seeds:              d.Sweep.Seeds,
		}
	}
	return out
}
