package hcl

import (
	"github.com/zclconf/go-cty/cty"
)

// fileRoot is used to decode all top-level blocks of a scenario file.
type fileRoot struct {
	Soils     []*soilBlock     `hcl:"soil,block"`
	Scenarios []*scenarioBlock `hcl:"scenario,block"`
}

// soilBlock represents a `soil` block: a named material preset.
type soilBlock struct {
	Name             string   `hcl:"name,label"`
	Density          *float64 `hcl:"density,optional"`
	FrictionAngleDeg *float64 `hcl:"friction_angle,optional"`
	YoungModulus     *float64 `hcl:"young_modulus,optional"`
	PoissonRatio     *float64 `hcl:"poisson_ratio,optional"`
	MeanRadius       *float64 `hcl:"mean_radius,optional"`
	RadiusFuzz       *float64 `hcl:"radius_fuzz,optional"`
}

// loadBlock represents the `load` block within a scenario.
type loadBlock struct {
	Policy         *string  `hcl:"policy,optional"`
	FrequencyHz    *float64 `hcl:"frequency_hz,optional"`
	Amplitude      *float64 `hcl:"amplitude,optional"`
	ShearThreshold *float64 `hcl:"shear_threshold,optional"`
}

// scenarioBlock represents a `scenario` block from a user's scenario file.
type scenarioBlock struct {
	Name      string  `hcl:"name,label"`
	Soil      string  `hcl:"soil,optional"`
	Engine    *string `hcl:"engine,optional"`
	EngineURL *string `hcl:"engine_url,optional"`

	DomainSize        []float64 `hcl:"domain_size,optional"`
	ParticleCount     *int      `hcl:"particle_count,optional"`
	PackingDensity    *string   `hcl:"packing_density,optional"`
	GrainDistribution *string   `hcl:"grain_distribution,optional"`
	Seed              *int64    `hcl:"seed,optional"`

	Density          *float64 `hcl:"density,optional"`
	FrictionAngleDeg *float64 `hcl:"friction_angle,optional"`
	YoungModulus     *float64 `hcl:"young_modulus,optional"`
	PoissonRatio     *float64 `hcl:"poisson_ratio,optional"`
	MeanRadius       *float64 `hcl:"mean_radius,optional"`
	RadiusFuzz       *float64 `hcl:"radius_fuzz,optional"`

	Load *loadBlock `hcl:"load,block"`

	DurationSeconds     *float64  `hcl:"duration_seconds,optional"`
	StepsPerCycle       *int      `hcl:"steps_per_cycle,optional"`
	SampleEvery         *int      `hcl:"sample_every,optional"`
	SettlementThreshold *float64  `hcl:"settlement_threshold,optional"`
	TimeStep            *float64  `hcl:"time_step,optional"`
	Damping             *float64  `hcl:"damping,optional"`
	Gravity             []float64 `hcl:"gravity,optional"`
	MaxWallClock        *string   `hcl:"max_wall_clock,optional"`
	Metrics             []string  `hcl:"metrics,optional"`

	// Sweep is an object of lists, decoded by decodeSweep.
	Sweep cty.Value `hcl:"sweep,optional"`
}
