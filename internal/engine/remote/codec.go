package remote

import (
	"fmt"

	"github.com/specialistvlad/shakegrid/internal/engine"
)

// state is the engine state returned by every step.
type state struct {
	Time          float64
	Positions     []engine.Vec3
	Velocities    []engine.Vec3
	Reactions     []engine.Vec3
	KineticEnergy float64
}

func vecToAny(v engine.Vec3) []any {
	return []any{v[0], v[1], v[2]}
}

// encodeSetup converts a setup into the JSON-compatible payload of
// dem:load.
func encodeSetup(s engine.Setup) map[string]any {
	particles := make([]any, len(s.Particles))
	for i, p := range s.Particles {
		particles[i] = []any{p.Position[0], p.Position[1], p.Position[2], p.Radius}
	}
	boundaries := make([]any, len(s.Boundaries))
	for i, b := range s.Boundaries {
		boundaries[i] = map[string]any{
			"name":        b.Name,
			"center":      vecToAny(b.Center),
			"half_extent": vecToAny(b.HalfExtent),
		}
	}
	return map[string]any{
		"particles": particles,
		"material": map[string]any{
			"density":        s.Material.Density,
			"friction_angle": s.Material.FrictionAngle,
			"young_modulus":  s.Material.YoungModulus,
			"poisson_ratio":  s.Material.PoissonRatio,
		},
		"boundaries":   boundaries,
		"gravity":      vecToAny(s.Gravity),
		"damping":      s.Damping,
		"time_step":    s.TimeStep,
		"spacing_hint": s.SpacingHint,
	}
}

// encodeForces converts the pending loads into the payload of dem:step.
func encodeForces(boundary map[int]engine.Vec3, particle map[int]engine.Vec3) map[string]any {
	b := make(map[string]any, len(boundary))
	for id, f := range boundary {
		b[fmt.Sprint(id)] = vecToAny(f)
	}
	p := make(map[string]any, len(particle))
	for i, f := range particle {
		p[fmt.Sprint(i)] = vecToAny(f)
	}
	return map[string]any{"boundary_forces": b, "particle_forces": p}
}

// decodeState reads a dem:step:done payload.
func decodeState(payload map[string]any, particles int) (state, error) {
	var s state
	var err error
	if s.Time, err = toFloat(payload["time"]); err != nil {
		return s, fmt.Errorf("time: %w", err)
	}
	if s.KineticEnergy, err = toFloat(payload["kinetic_energy"]); err != nil {
		return s, fmt.Errorf("kinetic_energy: %w", err)
	}
	if s.Positions, err = toVecs(payload["positions"]); err != nil {
		return s, fmt.Errorf("positions: %w", err)
	}
	if len(s.Positions) != particles {
		return s, fmt.Errorf("positions: expected %d particles, got %d", particles, len(s.Positions))
	}
	if s.Velocities, err = toVecs(payload["velocities"]); err != nil {
		return s, fmt.Errorf("velocities: %w", err)
	}
	if len(s.Velocities) != particles {
		return s, fmt.Errorf("velocities: expected %d particles, got %d", particles, len(s.Velocities))
	}
	if raw, ok := payload["reactions"]; ok && raw != nil {
		if s.Reactions, err = toVecs(raw); err != nil {
			return s, fmt.Errorf("reactions: %w", err)
		}
	}
	return s, nil
}

// responseError extracts the error a server reports in a response.
func responseError(payload map[string]any) error {
	msg, ok := payload["error"].(string)
	if !ok || msg == "" {
		return nil
	}
	return fmt.Errorf("engine server: %s", msg)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("missing number")
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func toVec(v any) (engine.Vec3, error) {
	list, ok := v.([]any)
	if !ok || len(list) != 3 {
		return engine.Vec3{}, fmt.Errorf("expected [x, y, z], got %v", v)
	}
	var out engine.Vec3
	for k, c := range list {
		f, err := toFloat(c)
		if err != nil {
			return engine.Vec3{}, err
		}
		out[k] = f
	}
	return out, nil
}

func toVecs(v any) ([]engine.Vec3, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]engine.Vec3, len(list))
	for i, item := range list {
		vec, err := toVec(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}
