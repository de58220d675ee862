// Package loading drives the cyclic load of a run. A single sinusoidal force
// law is shared by every load strategy; the strategy decides where the force
// goes (the top wall, or the particles of the top layer).
package loading

import (
	"context"
	"fmt"
	"math"

	"github.com/specialistvlad/shakegrid/internal/engine"
)

// ForceAt returns amplitude·sin(2π·frequency·t).
func ForceAt(t, amplitude, frequency float64) float64 {
	return amplitude * math.Sin(2*math.Pi*frequency*t)
}

// Strategy applies one step's load to the engine.
type Strategy interface {
	Apply(ctx context.Context, eng engine.Engine, force float64) error
}

// BoundaryForce applies the entire force downwards on one boundary. The force
// stays set on the boundary until the next Apply replaces it.
type BoundaryForce struct {
	Boundary int
}

// Apply implements Strategy.
func (b BoundaryForce) Apply(_ context.Context, eng engine.Engine, force float64) error {
	if err := eng.SetBoundaryForce(b.Boundary, engine.Vec3{0, 0, -force}); err != nil {
		return fmt.Errorf("failed to set force on boundary %d: %w", b.Boundary, err)
	}
	return nil
}

// TopLayerShear adds the force along x to every particle whose elevation is
// above Threshold·Height.
type TopLayerShear struct {
	Height    float64
	Threshold float64
}

// Apply implements Strategy.
func (s TopLayerShear) Apply(_ context.Context, eng engine.Engine, force float64) error {
	cut := s.Threshold * s.Height
	f := engine.Vec3{force, 0, 0}
	for i, p := range eng.Positions() {
		if p[engine.Z] <= cut {
			continue
		}
		if err := eng.AddParticleForce(i, f); err != nil {
			return fmt.Errorf("failed to add shear force to particle %d: %w", i, err)
		}
	}
	return nil
}
