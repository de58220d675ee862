package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/shakegrid/internal/engine"
)

// FakeEngine is a scripted engine.Engine for tests. Particles stay where they
// were loaded unless a test moves them with OnStep; every call is recorded.
type FakeEngine struct {
	mu sync.Mutex

	// OnStep, if set, runs after the clock advances, with the engine
	// locked: touch the fields directly. Returning an error fails the step.
	OnStep func(step int, f *FakeEngine) error
	// LoadErr is returned by Load when set.
	LoadErr error
	// KE is returned by KineticEnergy.
	KE float64
	// CloseErr is returned by Close when set.
	CloseErr error

	Setup          engine.Setup
	Pos            []engine.Vec3
	Vel            []engine.Vec3
	BoundaryForces map[int]engine.Vec3
	ParticleForces map[int]engine.Vec3
	Steps          int
	Closed         bool

	time float64
}

var _ engine.Engine = (*FakeEngine)(nil)

// NewFakeEngine returns an engine that moves nothing.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		BoundaryForces: make(map[int]engine.Vec3),
		ParticleForces: make(map[int]engine.Vec3),
	}
}

// WithPositions loads the engine directly with particles at the given
// positions and radius r, bypassing Load.
func (f *FakeEngine) WithPositions(r float64, pos ...engine.Vec3) *FakeEngine {
	f.Pos = append([]engine.Vec3(nil), pos...)
	f.Vel = make([]engine.Vec3, len(pos))
	f.Setup.Particles = make([]engine.Particle, len(pos))
	for i, p := range pos {
		f.Setup.Particles[i] = engine.Particle{Position: p, Radius: r}
	}
	return f
}

// Load implements engine.Engine.
func (f *FakeEngine) Load(_ context.Context, setup engine.Setup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.Setup = setup
	f.Pos = make([]engine.Vec3, len(setup.Particles))
	f.Vel = make([]engine.Vec3, len(setup.Particles))
	for i, p := range setup.Particles {
		f.Pos[i] = p.Position
	}
	return nil
}

// Step implements engine.Engine.
func (f *FakeEngine) Step(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Steps++
	f.time += f.Setup.TimeStep
	if f.OnStep != nil {
		if err := f.OnStep(f.Steps, f); err != nil {
			return err
		}
	}
	f.ParticleForces = make(map[int]engine.Vec3)
	return nil
}

// Time implements engine.Engine.
func (f *FakeEngine) Time() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.time
}

// Positions implements engine.Engine.
func (f *FakeEngine) Positions() []engine.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Vec3(nil), f.Pos...)
}

// Velocities implements engine.Engine.
func (f *FakeEngine) Velocities() []engine.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Vec3(nil), f.Vel...)
}

// Radii implements engine.Engine.
func (f *FakeEngine) Radii() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	radii := make([]float64, len(f.Setup.Particles))
	for i, p := range f.Setup.Particles {
		radii[i] = p.Radius
	}
	return radii
}

// BoundaryReaction implements engine.Engine.
func (f *FakeEngine) BoundaryReaction(id int) engine.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.BoundaryForces[id].Scale(-1)
}

// KineticEnergy implements engine.Engine.
func (f *FakeEngine) KineticEnergy() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.KE
}

// SetBoundaryForce implements engine.Engine.
func (f *FakeEngine) SetBoundaryForce(id int, force engine.Vec3) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id < 0 || id > engine.WallZMax {
		return fmt.Errorf("fake: unknown boundary %d", id)
	}
	f.BoundaryForces[id] = force
	return nil
}

// AddParticleForce implements engine.Engine.
func (f *FakeEngine) AddParticleForce(i int, force engine.Vec3) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.Pos) {
		return fmt.Errorf("fake: unknown particle %d", i)
	}
	f.ParticleForces[i] = f.ParticleForces[i].Add(force)
	return nil
}

// Close implements engine.Engine.
func (f *FakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return f.CloseErr
}
