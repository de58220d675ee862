package config

// Model is the unified, format-agnostic representation of every scenario
// file passed to a batch run.
type Model struct {
	Soils     map[string]*Soil
	Scenarios []*Scenario
}

// NewModel returns an empty model ready to be merged into.
func NewModel() *Model {
	return &Model{Soils: make(map[string]*Soil)}
}

// Soil is a named set of material parameters, the equivalent of a soil
// archetype such as a silty river sand.
type Soil struct {
	Name             string
	Density          *float64
	FrictionAngleDeg *float64
	YoungModulus     *float64
	PoissonRatio     *float64
	MeanRadius       *float64
	RadiusFuzz       *float64
}

// Load describes the cyclic load of a scenario.
type Load struct {
	Policy         *string
	FrequencyHz    *float64
	Amplitude      *float64
	ShearThreshold *float64
}

// Sweep lists per-axis values to expand a scenario into a cartesian product
// of runs. Empty axes are not swept.
type Sweep struct {
	GrainDistributions []string
	PackingDensities   []string
	LoadPolicies       []string
	FrequenciesHz      []float64
	Amplitudes         []float64
	Seeds              []int64
}

// IsEmpty reports whether no axis is swept.
func (s *Sweep) IsEmpty() bool {
	return s == nil || len(s.GrainDistributions)+len(s.PackingDensities)+len(s.LoadPolicies)+
		len(s.FrequenciesHz)+len(s.Amplitudes)+len(s.Seeds) == 0
}

// Scenario is one `scenario` block. Material fields override the soil.
type Scenario struct {
	Name   string
	Source string // file the block was read from, for error messages

	Soil      string
	Engine    *string
	EngineURL *string

	DomainSize        []float64
	ParticleCount     *int
	PackingDensity    *string
	GrainDistribution *string
	Seed              *int64

	Density          *float64
	FrictionAngleDeg *float64
	YoungModulus     *float64
	PoissonRatio     *float64
	MeanRadius       *float64
	RadiusFuzz       *float64

	Load *Load

	DurationSeconds     *float64
	StepsPerCycle       *int
	SampleEvery         *int
	SettlementThreshold *float64
	TimeStep            *float64
	Damping             *float64
	Gravity             []float64
	MaxWallClock        *string
	Metrics             []string

	Sweep *Sweep
}
