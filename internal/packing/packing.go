// Package packing generates the initial particle set of a sample: radii from a
// grain-size distribution and centres drawn uniformly inside the domain box.
//
// Overlaps are not resolved here. The engine's first steps push overlapping
// particles apart, so the density policy only yields an advisory spacing hint.
package packing

import (
	"fmt"
	"math/rand/v2"

	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/simerr"
)

// Distribution is a grain-size distribution.
type Distribution string

const (
	Uniform      Distribution = "uniform"
	WellGraded   Distribution = "well_graded"
	PoorlyGraded Distribution = "poorly_graded"
)

// Distributions lists the recognised distributions.
var Distributions = []Distribution{Uniform, WellGraded, PoorlyGraded}

// Valid reports whether d is a recognised distribution.
func (d Distribution) Valid() bool {
	switch d {
	case Uniform, WellGraded, PoorlyGraded:
		return true
	}
	return false
}

// Density is the packing density policy.
type Density string

const (
	Loose Density = "loose"
	Dense Density = "dense"
)

// Valid reports whether d is a recognised density policy.
func (d Density) Valid() bool {
	return d == Loose || d == Dense
}

// spacing factors, in multiples of the mean radius.
const (
	looseSpacing = 2.2
	denseSpacing = 2.0
)

// largeEvery makes every tenth particle of a poorly graded sample large.
const largeEvery = 10

// Params are the inputs of Generate.
type Params struct {
	Domain       engine.Vec3
	Count        int
	Distribution Distribution
	Density      Density
	MeanRadius   float64
	RadiusFuzz   float64
	Seed         uint64
}

// Packing is a generated particle set.
type Packing struct {
	Particles []engine.Particle
	// SpacingHint is the advisory minimum centre distance for the density
	// policy. It is not enforced.
	SpacingHint float64
}

// SmallRadius returns the lower radius of a two-size sample.
func (p Params) SmallRadius() float64 { return p.MeanRadius * (1 - p.RadiusFuzz) }

// LargeRadius returns the upper radius of a two-size sample.
func (p Params) LargeRadius() float64 { return p.MeanRadius * (1 + p.RadiusFuzz) }

func (p Params) validate() error {
	if p.Count <= 0 {
		return simerr.InvalidConfig("particle_count", "must be positive, got %d", p.Count)
	}
	for axis, l := range p.Domain {
		if l <= 0 {
			return simerr.InvalidConfig("domain_size", "dimension %d must be positive, got %g", axis, l)
		}
	}
	if !p.Distribution.Valid() {
		return simerr.InvalidConfig("grain_distribution", "unknown distribution %q", p.Distribution)
	}
	if p.Density != "" && !p.Density.Valid() {
		return simerr.InvalidConfig("packing_density", "unknown policy %q", p.Density)
	}
	if p.MeanRadius <= 0 {
		return simerr.InvalidConfig("mean_radius", "must be positive, got %g", p.MeanRadius)
	}
	if p.RadiusFuzz < 0 || p.RadiusFuzz >= 1 {
		return simerr.InvalidConfig("radius_fuzz", "must be in [0, 1), got %g", p.RadiusFuzz)
	}
	return nil
}

// Generate builds Count particles. The result depends only on the params, so
// the same seed always yields the same set.
func Generate(p Params) (*Packing, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	particles := make([]engine.Particle, p.Count)
	for i := range particles {
		particles[i] = engine.Particle{
			Position: engine.Vec3{
				rng.Float64() * p.Domain[0],
				rng.Float64() * p.Domain[1],
				rng.Float64() * p.Domain[2],
			},
			Radius: p.radius(i),
		}
	}

	spacing := looseSpacing
	if p.Density == Dense {
		spacing = denseSpacing
	}

	return &Packing{
		Particles:   particles,
		SpacingHint: spacing * p.MeanRadius,
	}, nil
}

func (p Params) radius(i int) float64 {
	switch p.Distribution {
	case WellGraded:
		if i%2 == 0 {
			return p.SmallRadius()
		}
		return p.LargeRadius()
	case PoorlyGraded:
		if i%largeEvery == largeEvery-1 {
			return p.LargeRadius()
		}
		return p.SmallRadius()
	default:
		return p.MeanRadius
	}
}

// SolidVolume returns the summed particle volume.
func (p *Packing) SolidVolume() float64 {
	var v float64
	for _, particle := range p.Particles {
		v += particle.Volume()
	}
	return v
}

// String summarises the packing for logs.
func (p *Packing) String() string {
	return fmt.Sprintf("%d particles, spacing hint %g", len(p.Particles), p.SpacingHint)
}
