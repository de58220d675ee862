// Package engine defines the contract between the experiment harness and a
// discrete-element physics engine. The harness never integrates motion
// itself: it registers particles and boundaries, asks the engine to advance
// one step at a time, and reads back positions, velocities, reactions and
// kinetic energy.
//
// Concrete engines live in sub-packages and are selected by name through a
// Registry.
package engine

import (
	"context"
	"math"
)

// Vec3 is a 3-component vector in SI units.
type Vec3 [3]float64

// X, Y and Z name the vector components.
const (
	X = 0
	Y = 1
	Z = 2
)

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the scalar product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Particle is a sphere handed to the engine at load time. It is never
// modified by the harness after creation.
type Particle struct {
	Position Vec3
	Radius   float64
}

// Volume returns the sphere volume.
func (p Particle) Volume() float64 {
	return SphereVolume(p.Radius)
}

// SphereVolume returns 4/3·π·r³.
func SphereVolume(r float64) float64 {
	return 4.0 / 3.0 * math.Pi * r * r * r
}

// Material carries the contact parameters every particle and wall is
// registered with. FrictionAngle is in radians, as engines expect.
type Material struct {
	Density       float64
	FrictionAngle float64
	YoungModulus  float64
	PoissonRatio  float64
}

// Boundary is a static axis-aligned box (a wall) identified by its index in
// Setup.Boundaries.
type Boundary struct {
	Name       string
	Center     Vec3
	HalfExtent Vec3
}

// Setup is everything an engine needs before the first step.
type Setup struct {
	Particles  []Particle
	Material   Material
	Boundaries []Boundary
	Gravity    Vec3
	Damping    float64
	TimeStep   float64
	// SpacingHint is the advisory minimum centre distance of the packing.
	// Engines that relax the packing before loading may use it; others
	// ignore it.
	SpacingHint float64
}

// Engine is the capability set the harness drives. Implementations are used
// from a single goroutine; Step blocks until the integration step finishes.
type Engine interface {
	// Load registers particles, material and static boundaries. It is
	// called exactly once, before the first Step.
	Load(ctx context.Context, setup Setup) error
	// Step advances the simulation by one time step.
	Step(ctx context.Context) error
	// Time returns the current simulation time in seconds.
	Time() float64
	// Positions returns the current particle centres in registration order.
	Positions() []Vec3
	// Velocities returns the current particle velocities in registration order.
	Velocities() []Vec3
	// Radii returns the particle radii in registration order.
	Radii() []float64
	// BoundaryReaction returns the reaction force on a boundary.
	BoundaryReaction(id int) Vec3
	// KineticEnergy returns the total translational kinetic energy.
	KineticEnergy() float64
	// SetBoundaryForce sets a force that stays applied to a boundary until
	// it is replaced.
	SetBoundaryForce(id int, f Vec3) error
	// AddParticleForce adds a force to a particle for the next step only.
	AddParticleForce(i int, f Vec3) error
	// Close releases engine resources.
	Close() error
}

// Wall indices returned by AABBWalls, in the x-, x+, y-, y+, z-, z+ order.
const (
	WallXMin = iota
	WallXMax
	WallYMin
	WallYMax
	WallZMin
	WallZMax

	// TopWall is the wall the cyclic boundary load is applied to.
	TopWall = WallZMax
)

// AABBWalls returns six walls of the given thickness enclosing the box
// [0, domain]. Each wall sits outside the box, flush with its face.
func AABBWalls(domain Vec3, thickness float64) []Boundary {
	half := domain.Scale(0.5)
	t := thickness / 2
	names := [6]string{"x_min", "x_max", "y_min", "y_max", "z_min", "z_max"}

	walls := make([]Boundary, 0, 6)
	for axis := 0; axis < 3; axis++ {
		for side := 0; side < 2; side++ {
			center := half
			extent := Vec3{half[0] + thickness, half[1] + thickness, half[2] + thickness}
			extent[axis] = t
			if side == 0 {
				center[axis] = -t
			} else {
				center[axis] = domain[axis] + t
			}
			walls = append(walls, Boundary{
				Name:       names[axis*2+side],
				Center:     center,
				HalfExtent: extent,
			})
		}
	}
	return walls
}
