// Package settle is a lightweight in-process engine used for dry runs and
// tests. It integrates each particle independently under gravity and the
// applied loads, with Cundall non-viscous damping, and treats the six
// bounding walls as rigid position clamps. There is no particle-particle
// contact: samples settle onto the floor rather than forming a skeleton,
// which is enough to exercise the harness end to end.
package settle

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/specialistvlad/shakegrid/internal/engine"
)

// Name is the registry name of this engine.
const Name = "settle"

// ErrDiverged is returned when a particle state stops being finite.
var ErrDiverged = errors.New("settle: particle state diverged")

// Module implements the engine.Module interface for this package.
type Module struct{}

// Register registers the settle engine factory.
func (m *Module) Register(r *engine.Registry) {
	r.Register(Name, func(engine.Options) (engine.Engine, error) {
		return New(), nil
	})
}

// Engine is the settle engine state. It is not safe for concurrent use.
type Engine struct {
	loaded bool
	closed bool
	setup  engine.Setup

	lo, hi   engine.Vec3
	band     float64
	pos      []engine.Vec3
	vel      []engine.Vec3
	radius   []float64
	mass     []float64
	forces   []engine.Vec3
	wallF    []engine.Vec3
	reaction []engine.Vec3
	time     float64
}

var _ engine.Engine = (*Engine)(nil)

// New creates an empty engine awaiting Load.
func New() *Engine {
	return &Engine{}
}

// Load implements engine.Engine.
func (e *Engine) Load(ctx context.Context, setup engine.Setup) error {
	if e.loaded {
		return errors.New("settle: engine already loaded")
	}
	if setup.TimeStep <= 0 {
		return fmt.Errorf("settle: time step must be positive, got %g", setup.TimeStep)
	}
	if setup.Material.Density <= 0 {
		return fmt.Errorf("settle: material density must be positive, got %g", setup.Material.Density)
	}
	if len(setup.Boundaries) != 6 {
		return fmt.Errorf("settle: expected 6 axis-aligned walls, got %d", len(setup.Boundaries))
	}

	walls := setup.Boundaries
	for axis := 0; axis < 3; axis++ {
		lower, upper := walls[2*axis], walls[2*axis+1]
		e.lo[axis] = lower.Center[axis] + lower.HalfExtent[axis]
		e.hi[axis] = upper.Center[axis] - upper.HalfExtent[axis]
		if e.hi[axis] <= e.lo[axis] {
			return fmt.Errorf("settle: walls %s/%s enclose no volume", lower.Name, upper.Name)
		}
	}

	n := len(setup.Particles)
	e.pos = make([]engine.Vec3, n)
	e.vel = make([]engine.Vec3, n)
	e.radius = make([]float64, n)
	e.mass = make([]float64, n)
	e.forces = make([]engine.Vec3, n)
	e.wallF = make([]engine.Vec3, len(walls))
	e.reaction = make([]engine.Vec3, len(walls))

	var maxR float64
	for i, p := range setup.Particles {
		if p.Radius <= 0 {
			return fmt.Errorf("settle: particle %d has non-positive radius %g", i, p.Radius)
		}
		e.pos[i] = p.Position
		e.radius[i] = p.Radius
		e.mass[i] = setup.Material.Density * p.Volume()
		maxR = math.Max(maxR, p.Radius)
	}
	e.band = 2 * maxR
	e.setup = setup
	e.loaded = true
	return nil
}

// Step implements engine.Engine.
func (e *Engine) Step(ctx context.Context) error {
	if !e.loaded || e.closed {
		return errors.New("settle: engine is not loaded")
	}
	dt := e.setup.TimeStep

	// The top wall load is shared by the particles touching the top band.
	var topShare engine.Vec3
	if top := e.wallF[engine.TopWall]; top != (engine.Vec3{}) {
		var inBand int
		for i, p := range e.pos {
			if p[engine.Z]+e.radius[i] >= e.hi[engine.Z]-e.band {
				inBand++
			}
		}
		if inBand > 0 {
			topShare = top.Scale(1 / float64(inBand))
		}
	}

	for w := range e.reaction {
		e.reaction[w] = engine.Vec3{}
	}

	for i := range e.pos {
		m := e.mass[i]
		f := e.setup.Gravity.Scale(m).Add(e.forces[i])
		if e.pos[i][engine.Z]+e.radius[i] >= e.hi[engine.Z]-e.band {
			f = f.Add(topShare)
		}

		for k := 0; k < 3; k++ {
			if v := e.vel[i][k]; v != 0 {
				f[k] -= e.setup.Damping * math.Abs(f[k]) * math.Copysign(1, v)
			}
			e.vel[i][k] += f[k] / m * dt
			e.pos[i][k] += e.vel[i][k] * dt

			r := e.radius[i]
			switch {
			case e.pos[i][k] < e.lo[k]+r:
				e.pos[i][k] = e.lo[k] + r
				e.reaction[2*k][k] += m * e.vel[i][k] / dt
				e.vel[i][k] = 0
			case e.pos[i][k] > e.hi[k]-r:
				e.pos[i][k] = e.hi[k] - r
				e.reaction[2*k+1][k] += m * e.vel[i][k] / dt
				e.vel[i][k] = 0
			}
		}

		if !finite(e.pos[i]) || !finite(e.vel[i]) {
			return fmt.Errorf("%w: particle %d at t=%g", ErrDiverged, i, e.time)
		}
		e.forces[i] = engine.Vec3{}
	}

	e.time += dt
	return nil
}

// Time implements engine.Engine.
func (e *Engine) Time() float64 { return e.time }

// Positions implements engine.Engine.
func (e *Engine) Positions() []engine.Vec3 {
	return append([]engine.Vec3(nil), e.pos...)
}

// Velocities implements engine.Engine.
func (e *Engine) Velocities() []engine.Vec3 {
	return append([]engine.Vec3(nil), e.vel...)
}

// Radii implements engine.Engine.
func (e *Engine) Radii() []float64 {
	return append([]float64(nil), e.radius...)
}

// BoundaryReaction implements engine.Engine.
func (e *Engine) BoundaryReaction(id int) engine.Vec3 {
	if id < 0 || id >= len(e.reaction) {
		return engine.Vec3{}
	}
	return e.reaction[id]
}

// KineticEnergy implements engine.Engine.
func (e *Engine) KineticEnergy() float64 {
	var ke float64
	for i, v := range e.vel {
		ke += 0.5 * e.mass[i] * v.Dot(v)
	}
	return ke
}

// SetBoundaryForce implements engine.Engine.
func (e *Engine) SetBoundaryForce(id int, f engine.Vec3) error {
	if id < 0 || id >= len(e.wallF) {
		return fmt.Errorf("settle: unknown boundary %d", id)
	}
	e.wallF[id] = f
	return nil
}

// AddParticleForce implements engine.Engine.
func (e *Engine) AddParticleForce(i int, f engine.Vec3) error {
	if i < 0 || i >= len(e.forces) {
		return fmt.Errorf("settle: unknown particle %d", i)
	}
	e.forces[i] = e.forces[i].Add(f)
	return nil
}

// Close implements engine.Engine.
func (e *Engine) Close() error {
	e.closed = true
	return nil
}

func finite(v engine.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
