package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAABBWalls(t *testing.T) {
	domain := Vec3{0.1, 0.2, 0.3}
	walls := AABBWalls(domain, 0.005)

	require.Len(t, walls, 6)
	assert.Equal(t, "z_max", walls[TopWall].Name)
	assert.InDelta(t, 0.3025, walls[TopWall].Center[Z], 1e-12)
	assert.InDelta(t, -0.0025, walls[WallZMin].Center[Z], 1e-12)
	assert.InDelta(t, 0.0025, walls[TopWall].HalfExtent[Z], 1e-12)
	assert.InDelta(t, 0.1025, walls[WallXMax].Center[X], 1e-12)
	assert.InDelta(t, 0.1, walls[WallXMax].Center[Y], 1e-12)
}

func TestSphereVolume(t *testing.T) {
	assert.InDelta(t, 4.0/3.0*math.Pi, SphereVolume(1), 1e-12)
	assert.Zero(t, Particle{Radius: 0}.Volume())
}

type fakeModule struct{ name string }

func (m fakeModule) Register(r *Registry) {
	r.Register(m.name, func(Options) (Engine, error) { return nil, nil })
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(fakeModule{"b"}, fakeModule{"a"})

	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))

	_, err := r.New("c", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown engine "c"`)

	assert.Panics(t, func() { fakeModule{"a"}.Register(r) })
}
