package settle

import (
	"context"
	"math"
	"testing"

	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoaded(t *testing.T, damping float64, particles ...engine.Particle) *Engine {
	t.Helper()
	e := New()
	err := e.Load(context.Background(), engine.Setup{
		Particles:  particles,
		Material:   engine.Material{Density: 1700, FrictionAngle: 0.5, YoungModulus: 5e6, PoissonRatio: 0.3},
		Boundaries: engine.AABBWalls(engine.Vec3{0.1, 0.1, 0.1}, 0.005),
		Gravity:    engine.Vec3{0, 0, -9.81},
		Damping:    damping,
		TimeStep:   0.01,
	})
	require.NoError(t, err)
	return e
}

func TestStep_ParticleSettlesOnFloor(t *testing.T) {
	ctx := context.Background()
	p := engine.Particle{Position: engine.Vec3{0.05, 0.05, 0.05}, Radius: 0.002}
	e := newLoaded(t, 0, p)

	for i := 0; i < 50; i++ {
		require.NoError(t, e.Step(ctx))
	}

	assert.InDelta(t, 0.5, e.Time(), 1e-9)
	assert.InDelta(t, 0.002, e.Positions()[0][engine.Z], 1e-12)
	assert.Zero(t, e.KineticEnergy())

	mass := 1700 * p.Volume()
	assert.InDelta(t, -mass*9.81, e.BoundaryReaction(engine.WallZMin)[engine.Z], 1e-12)
	assert.Equal(t, engine.Vec3{}, e.BoundaryReaction(99))
}

func TestAddParticleForce_AppliesForOneStep(t *testing.T) {
	ctx := context.Background()
	p := engine.Particle{Position: engine.Vec3{0.05, 0.05, 0.002}, Radius: 0.002}
	e := newLoaded(t, 0, p)
	mass := 1700 * p.Volume()

	require.NoError(t, e.AddParticleForce(0, engine.Vec3{1e-3, 0, 0}))
	require.NoError(t, e.Step(ctx))
	vx := e.Velocities()[0][engine.X]
	assert.InDelta(t, 1e-3/mass*0.01, vx, 1e-12)

	require.NoError(t, e.Step(ctx))
	assert.InDelta(t, vx, e.Velocities()[0][engine.X], 1e-12, "force must not persist past one step")

	require.Error(t, e.AddParticleForce(5, engine.Vec3{}))
}

func TestSetBoundaryForce_PushesTopBand(t *testing.T) {
	ctx := context.Background()
	top := engine.Particle{Position: engine.Vec3{0.05, 0.05, 0.097}, Radius: 0.002}
	low := engine.Particle{Position: engine.Vec3{0.02, 0.02, 0.05}, Radius: 0.002}
	e := newLoaded(t, 0, top, low)

	require.NoError(t, e.SetBoundaryForce(engine.TopWall, engine.Vec3{0, 0, -1e-4}))
	require.NoError(t, e.Step(ctx))

	v := e.Velocities()
	assert.Less(t, v[0][engine.Z], v[1][engine.Z], "the top-band particle must be pushed harder")
	require.Error(t, e.SetBoundaryForce(6, engine.Vec3{}))
}

func TestStep_DampingOpposesMotion(t *testing.T) {
	ctx := context.Background()
	p := engine.Particle{Position: engine.Vec3{0.05, 0.05, 0.09}, Radius: 0.002}
	free := newLoaded(t, 0, p)
	damped := newLoaded(t, 0.2, p)

	for i := 0; i < 2; i++ {
		require.NoError(t, free.Step(ctx))
		require.NoError(t, damped.Step(ctx))
	}

	assert.Less(t, damped.KineticEnergy(), free.KineticEnergy())
}

func TestStep_DivergenceIsReported(t *testing.T) {
	e := newLoaded(t, 0, engine.Particle{Position: engine.Vec3{0.05, 0.05, 0.05}, Radius: 0.002})
	require.NoError(t, e.AddParticleForce(0, engine.Vec3{math.NaN(), 0, 0}))

	err := e.Step(context.Background())
	require.ErrorIs(t, err, ErrDiverged)
}

func TestLoad_Validation(t *testing.T) {
	walls := engine.AABBWalls(engine.Vec3{0.1, 0.1, 0.1}, 0.005)
	good := engine.Setup{
		Particles:  []engine.Particle{{Position: engine.Vec3{0.05, 0.05, 0.05}, Radius: 0.001}},
		Material:   engine.Material{Density: 1},
		Boundaries: walls,
		TimeStep:   0.01,
	}

	testCases := []struct {
		name   string
		mutate func(s *engine.Setup)
	}{
		{"zero time step", func(s *engine.Setup) { s.TimeStep = 0 }},
		{"zero density", func(s *engine.Setup) { s.Material.Density = 0 }},
		{"missing walls", func(s *engine.Setup) { s.Boundaries = walls[:4] }},
		{"bad radius", func(s *engine.Setup) { s.Particles = []engine.Particle{{Radius: -1}} }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setup := good
			tc.mutate(&setup)
			require.Error(t, New().Load(context.Background(), setup))
		})
	}

	e := New()
	require.NoError(t, e.Load(context.Background(), good))
	require.Error(t, e.Load(context.Background(), good), "second load must fail")
	require.NoError(t, e.Close())
	require.Error(t, e.Step(context.Background()), "closed engine must not step")
}

func TestModule_Registers(t *testing.T) {
	r := engine.NewRegistry(&Module{})
	eng, err := r.New(Name, engine.Options{})
	require.NoError(t, err)
	assert.IsType(t, &Engine{}, eng)
}
