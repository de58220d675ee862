// Package scenario turns scenario-file declarations into validated, immutable
// run configurations. A Config is resolved once per run from built-in soil
// presets, soil blocks, per-scenario overrides and defaults, in that order of
// increasing precedence, and is passed by value from then on.
package scenario

import (
	"math"
	"regexp"
	"time"

	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/packing"
	"github.com/specialistvlad/shakegrid/internal/recorder"
	"github.com/specialistvlad/shakegrid/internal/simerr"
)

// LoadPolicy selects how the cyclic force is applied.
type LoadPolicy string

const (
	// BoundaryLoad applies the whole force to the top wall.
	BoundaryLoad LoadPolicy = "boundary"
	// ShearLoad adds the force along x to every particle in the top layer.
	ShearLoad LoadPolicy = "shear"
)

// Valid reports whether p is a recognised policy.
func (p LoadPolicy) Valid() bool {
	return p == BoundaryLoad || p == ShearLoad
}

// LoadConfig describes the sinusoidal load.
type LoadConfig struct {
	Policy      LoadPolicy
	FrequencyHz float64
	Amplitude   float64 // N
	// ShearThreshold is the fraction of domain height above which particles
	// receive the shear force.
	ShearThreshold float64
}

// Config is the full, validated configuration of one scenario run.
type Config struct {
	Name      string
	Soil      string
	Engine    string
	EngineURL string

	DomainSize        engine.Vec3
	ParticleCount     int
	PackingDensity    packing.Density
	GrainDistribution packing.Distribution
	Seed              uint64

	Material MaterialConfig
	Load     LoadConfig

	DurationSeconds float64
	StepsPerCycle   int
	// SampleEvery is the recorder cadence in steps.
	SampleEvery int
	// SettlementThreshold is the fraction of domain height above which a
	// particle counts as part of the top layer.
	SettlementThreshold float64
	TimeStep            float64
	Damping             float64
	Gravity             engine.Vec3
	// MaxWallClock bounds the run's real time. Zero means unbounded.
	MaxWallClock time.Duration
	Metrics      []recorder.Metric
}

// Defaults returns the configuration of the reference experiment: a 10 cm
// cube of 1500 Babai sand grains shaken at 0.5 Hz / 2 kN for 60 s.
func Defaults() Config {
	return Config{
		Soil:                DefaultSoil,
		Engine:              "settle",
		DomainSize:          engine.Vec3{0.1, 0.1, 0.1},
		ParticleCount:       1500,
		PackingDensity:      packing.Loose,
		GrainDistribution:   packing.PoorlyGraded,
		Seed:                5,
		Material:            Presets[DefaultSoil],
		Load:                LoadConfig{Policy: BoundaryLoad, FrequencyHz: 0.5, Amplitude: 2000, ShearThreshold: 0.9},
		DurationSeconds:     60,
		StepsPerCycle:       50,
		SettlementThreshold: 0.95,
		Damping:             0.2,
		Gravity:             engine.Vec3{0, 0, -9.81},
		Metrics:             append([]recorder.Metric(nil), recorder.AllMetrics...),
	}
}

// TotalSteps is the number of load invocations of the run.
func (c Config) TotalSteps() int {
	return int(c.DurationSeconds * c.Load.FrequencyHz * float64(c.StepsPerCycle))
}

// DomainHeight returns the z extent of the domain.
func (c Config) DomainHeight() float64 {
	return c.DomainSize[engine.Z]
}

// DomainVolume returns the volume of the domain box.
func (c Config) DomainVolume() float64 {
	return c.DomainSize[0] * c.DomainSize[1] * c.DomainSize[2]
}

// PackingParams returns the packing generator inputs for this run.
func (c Config) PackingParams() packing.Params {
	return packing.Params{
		Domain:       c.DomainSize,
		Count:        c.ParticleCount,
		Distribution: c.GrainDistribution,
		Density:      c.PackingDensity,
		MeanRadius:   c.Material.MeanRadius,
		RadiusFuzz:   c.Material.RadiusFuzz,
		Seed:         c.Seed,
	}
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Validate checks every invariant of the configuration. The returned error
// wraps simerr.ErrInvalidConfig and names the offending field.
func (c Config) Validate() error {
	if !namePattern.MatchString(c.Name) {
		return simerr.InvalidConfig("name", "%q must start with a letter or digit and contain only letters, digits, '_', '.', '-'", c.Name)
	}
	if c.Engine == "" {
		return simerr.InvalidConfig("engine", "must not be empty")
	}
	for axis, l := range c.DomainSize {
		if !(l > 0) {
			return simerr.InvalidConfig("domain_size", "dimension %d must be positive, got %g", axis, l)
		}
	}
	if c.ParticleCount <= 0 {
		return simerr.InvalidConfig("particle_count", "must be positive, got %d", c.ParticleCount)
	}
	if !c.PackingDensity.Valid() {
		return simerr.InvalidConfig("packing_density", "unknown policy %q", c.PackingDensity)
	}
	if !c.GrainDistribution.Valid() {
		return simerr.InvalidConfig("grain_distribution", "unknown distribution %q", c.GrainDistribution)
	}
	if err := c.Material.Validate(); err != nil {
		return err
	}
	if !c.Load.Policy.Valid() {
		return simerr.InvalidConfig("load.policy", "unknown policy %q", c.Load.Policy)
	}
	if !(c.Load.FrequencyHz > 0) || math.IsInf(c.Load.FrequencyHz, 0) {
		return simerr.InvalidConfig("load.frequency_hz", "must be positive, got %g", c.Load.FrequencyHz)
	}
	if !(c.Load.Amplitude > 0) || math.IsInf(c.Load.Amplitude, 0) {
		return simerr.InvalidConfig("load.amplitude", "must be positive, got %g", c.Load.Amplitude)
	}
	if !(c.Load.ShearThreshold > 0 && c.Load.ShearThreshold <= 1) {
		return simerr.InvalidConfig("load.shear_threshold", "must be in (0, 1], got %g", c.Load.ShearThreshold)
	}
	if !(c.DurationSeconds > 0) || math.IsInf(c.DurationSeconds, 0) {
		return simerr.InvalidConfig("duration_seconds", "must be positive, got %g", c.DurationSeconds)
	}
	if c.StepsPerCycle <= 0 {
		return simerr.InvalidConfig("steps_per_cycle", "must be positive, got %d", c.StepsPerCycle)
	}
	if c.SampleEvery <= 0 {
		return simerr.InvalidConfig("sample_every", "must be positive, got %d", c.SampleEvery)
	}
	if !(c.SettlementThreshold > 0 && c.SettlementThreshold < 1) {
		return simerr.InvalidConfig("settlement_threshold", "must be in (0, 1), got %g", c.SettlementThreshold)
	}
	if !(c.TimeStep > 0) || math.IsInf(c.TimeStep, 0) {
		return simerr.InvalidConfig("time_step", "must be positive, got %g", c.TimeStep)
	}
	if !(c.Damping >= 0 && c.Damping < 1) {
		return simerr.InvalidConfig("damping", "must be in [0, 1), got %g", c.Damping)
	}
	if c.MaxWallClock < 0 {
		return simerr.InvalidConfig("max_wall_clock", "must not be negative, got %s", c.MaxWallClock)
	}
	if len(c.Metrics) == 0 {
		return simerr.InvalidConfig("metrics", "at least one metric is required")
	}
	for _, m := range c.Metrics {
		if !m.Valid() {
			return simerr.InvalidConfig("metrics", "unknown metric %q", m)
		}
	}
	if c.TotalSteps() < 1 {
		return simerr.InvalidConfig("duration_seconds", "run of %gs at %g Hz and %d steps per cycle has no steps",
			c.DurationSeconds, c.Load.FrequencyHz, c.StepsPerCycle)
	}
	return nil
}
