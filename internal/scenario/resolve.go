package scenario

import (
	"fmt"
	"time"

	"github.com/specialistvlad/shakegrid/internal/config"
	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/packing"
	"github.com/specialistvlad/shakegrid/internal/recorder"
	"github.com/specialistvlad/shakegrid/internal/simerr"
)

// New fills the derived defaults of c (time step and sampling cadence, which
// depend on the load frequency and cycle length) and validates it.
func New(c Config) (Config, error) {
	if c.TimeStep == 0 && c.Load.FrequencyHz > 0 && c.StepsPerCycle > 0 {
		c.TimeStep = 1 / (c.Load.FrequencyHz * float64(c.StepsPerCycle))
	}
	if c.SampleEvery == 0 {
		c.SampleEvery = c.StepsPerCycle
	}
	c.Metrics = append([]recorder.Metric(nil), c.Metrics...)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// FromPreset returns the reference experiment for a built-in soil, named
// after it.
func FromPreset(soil string) (Config, error) {
	material, ok := Presets[soil]
	if !ok {
		return Config{}, simerr.InvalidConfig("soil", "unknown preset %q (known: %v)", soil, PresetNames())
	}
	c := Defaults()
	c.Name = soil
	c.Soil = soil
	c.Material = material
	return New(c)
}

// Resolve builds the run configuration of a single, already expanded,
// scenario declaration.
func Resolve(decl *config.Scenario, soils map[string]*config.Soil) (Config, error) {
	c := Defaults()
	c.Name = decl.Name

	material, err := resolveMaterial(decl.Soil, soils)
	if err != nil {
		return Config{}, err
	}
	if decl.Soil != "" {
		c.Soil = decl.Soil
	}
	c.Material = material
	overrideMaterial(&c.Material, &config.Soil{
		Density:          decl.Density,
		FrictionAngleDeg: decl.FrictionAngleDeg,
		YoungModulus:     decl.YoungModulus,
		PoissonRatio:     decl.PoissonRatio,
		MeanRadius:       decl.MeanRadius,
		RadiusFuzz:       decl.RadiusFuzz,
	})

	set(&c.Engine, decl.Engine)
	set(&c.EngineURL, decl.EngineURL)
	if decl.DomainSize != nil {
		v, err := vec3("domain_size", decl.DomainSize)
		if err != nil {
			return Config{}, err
		}
		c.DomainSize = v
	}
	set(&c.ParticleCount, decl.ParticleCount)
	if decl.PackingDensity != nil {
		c.PackingDensity = packing.Density(*decl.PackingDensity)
	}
	if decl.GrainDistribution != nil {
		c.GrainDistribution = packing.Distribution(*decl.GrainDistribution)
	}
	if decl.Seed != nil {
		if *decl.Seed < 0 {
			return Config{}, simerr.InvalidConfig("seed", "must not be negative, got %d", *decl.Seed)
		}
		c.Seed = uint64(*decl.Seed)
	}

	if l := decl.Load; l != nil {
		if l.Policy != nil {
			c.Load.Policy = LoadPolicy(*l.Policy)
		}
		set(&c.Load.FrequencyHz, l.FrequencyHz)
		set(&c.Load.Amplitude, l.Amplitude)
		set(&c.Load.ShearThreshold, l.ShearThreshold)
	}

	set(&c.DurationSeconds, decl.DurationSeconds)
	set(&c.StepsPerCycle, decl.StepsPerCycle)
	set(&c.SampleEvery, decl.SampleEvery)
	set(&c.SettlementThreshold, decl.SettlementThreshold)
	set(&c.TimeStep, decl.TimeStep)
	set(&c.Damping, decl.Damping)
	if decl.Gravity != nil {
		v, err := vec3("gravity", decl.Gravity)
		if err != nil {
			return Config{}, err
		}
		c.Gravity = v
	}
	if decl.MaxWallClock != nil {
		d, err := time.ParseDuration(*decl.MaxWallClock)
		if err != nil {
			return Config{}, simerr.InvalidConfig("max_wall_clock", "%v", err)
		}
		c.MaxWallClock = d
	}
	if decl.Metrics != nil {
		c.Metrics = make([]recorder.Metric, 0, len(decl.Metrics))
		for _, name := range decl.Metrics {
			m, err := recorder.ParseMetric(name)
			if err != nil {
				return Config{}, simerr.InvalidConfig("metrics", "%v", err)
			}
			c.Metrics = append(c.Metrics, m)
		}
	}

	return New(c)
}

// resolveMaterial layers a soil block from the scenario files over the
// built-in preset of the same name.
func resolveMaterial(name string, soils map[string]*config.Soil) (MaterialConfig, error) {
	if name == "" {
		name = DefaultSoil
	}
	preset, hasPreset := Presets[name]
	block, hasBlock := soils[name]
	if !hasPreset && !hasBlock {
		return MaterialConfig{}, simerr.InvalidConfig("soil", "unknown soil %q", name)
	}
	if hasBlock {
		overrideMaterial(&preset, block)
	}
	return preset, nil
}

func overrideMaterial(m *MaterialConfig, s *config.Soil) {
	set(&m.Density, s.Density)
	set(&m.FrictionAngleDeg, s.FrictionAngleDeg)
	set(&m.YoungModulus, s.YoungModulus)
	set(&m.PoissonRatio, s.PoissonRatio)
	set(&m.MeanRadius, s.MeanRadius)
	set(&m.RadiusFuzz, s.RadiusFuzz)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func vec3(field string, v []float64) (engine.Vec3, error) {
	if len(v) != 3 {
		return engine.Vec3{}, simerr.InvalidConfig(field, "needs 3 components, got %d", len(v))
	}
	return engine.Vec3{v[0], v[1], v[2]}, nil
}

// Entry is the outcome of resolving one run of a batch.
type Entry struct {
	Name   string
	Source string
	Config Config
	Err    error
}

// ResolveModel expands every scenario of the model and resolves each run.
// A failing run yields an Entry with Err set; the others are unaffected.
// Run names must be unique across the batch.
func ResolveModel(model *config.Model) []Entry {
	var entries []Entry
	seen := make(map[string]string)

	for _, decl := range model.Scenarios {
		for _, run := range Expand(decl) {
			entry := Entry{Name: run.Name, Source: run.Source}
			if first, dup := seen[run.Name]; dup {
				entry.Err = simerr.InvalidConfig("name", "duplicate scenario name %q (first declared in %s)", run.Name, first)
			} else {
				seen[run.Name] = run.Source
				entry.Config, entry.Err = Resolve(run, model.Soils)
			}
			if entry.Err != nil {
				entry.Err = fmt.Errorf("scenario %q: %w", run.Name, entry.Err)
			}
			entries = append(entries, entry)
		}
	}
	return entries
}
