package scenario

import (
	"math"
	"sort"

	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/simerr"
)

// MaterialConfig holds the physical constants of a soil used to
// parameterise contact behaviour in the engine, plus the grain size of the
// sample generated for it.
type MaterialConfig struct {
	Density          float64 // kg/m³
	FrictionAngleDeg float64
	YoungModulus     float64 // Pa
	PoissonRatio     float64
	MeanRadius       float64 // m
	RadiusFuzz       float64 // relative spread of the two grain sizes
}

// Presets are the built-in soil archetypes. Soil blocks in scenario files
// with the same name override them field by field.
var Presets = map[string]MaterialConfig{
	// Babai River: finer silty sand with some fines.
	"babai": {
		Density:          1700,
		FrictionAngleDeg: 28,
		YoungModulus:     5e6,
		PoissonRatio:     0.3,
		MeanRadius:       0.002,
		RadiusFuzz:       0.5,
	},
	// Bansilaghat: stiffer, denser and coarser sand.
	"bansilaghat": {
		Density:          1900,
		FrictionAngleDeg: 33,
		YoungModulus:     1e7,
		PoissonRatio:     0.25,
		MeanRadius:       0.003,
		RadiusFuzz:       0.3,
	},
}

// DefaultSoil is used by scenarios that name no soil.
const DefaultSoil = "babai"

// PresetNames returns the built-in soil names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine converts the material into the engine's representation.
func (m MaterialConfig) Engine() engine.Material {
	return engine.Material{
		Density:       m.Density,
		FrictionAngle: m.FrictionAngleDeg * math.Pi / 180,
		YoungModulus:  m.YoungModulus,
		PoissonRatio:  m.PoissonRatio,
	}
}

// Validate checks the material invariants.
func (m MaterialConfig) Validate() error {
	switch {
	case !(m.Density > 0):
		return simerr.InvalidConfig("density", "must be positive, got %g", m.Density)
	case !(m.FrictionAngleDeg > 0 && m.FrictionAngleDeg < 90):
		return simerr.InvalidConfig("friction_angle", "must be in (0, 90) degrees, got %g", m.FrictionAngleDeg)
	case !(m.YoungModulus > 0):
		return simerr.InvalidConfig("young_modulus", "must be positive, got %g", m.YoungModulus)
	case !(m.PoissonRatio > 0 && m.PoissonRatio < 0.5):
		return simerr.InvalidConfig("poisson_ratio", "must be in (0, 0.5), got %g", m.PoissonRatio)
	case !(m.MeanRadius > 0):
		return simerr.InvalidConfig("mean_radius", "must be positive, got %g", m.MeanRadius)
	case !(m.RadiusFuzz >= 0 && m.RadiusFuzz < 1):
		return simerr.InvalidConfig("radius_fuzz", "must be in [0, 1), got %g", m.RadiusFuzz)
	}
	return nil
}
