package loading

import (
	"context"

	"github.com/specialistvlad/shakegrid/internal/engine"
)

// BoundaryLoadSample is the force computed by one scheduler invocation.
type BoundaryLoadSample struct {
	Time  float64
	Force float64
}

// Scheduler recomputes the load once per step and counts its invocations.
// Once the count exceeds the configured maximum it reports the run as done
// and stops applying load.
type Scheduler struct {
	amplitude float64
	frequency float64
	strategy  Strategy
	max       int
	count     int
}

// NewScheduler creates a scheduler for the given sinusoid. maxInvocations is
// the number of steps that receive a load.
func NewScheduler(amplitude, frequency float64, strategy Strategy, maxInvocations int) *Scheduler {
	return &Scheduler{
		amplitude: amplitude,
		frequency: frequency,
		strategy:  strategy,
		max:       maxInvocations,
	}
}

// Tick counts one invocation at simulation time t. When the run is over it
// returns done = true and applies nothing; otherwise it applies ForceAt(t)
// through the strategy and returns the applied sample.
func (s *Scheduler) Tick(ctx context.Context, eng engine.Engine, t float64) (sample BoundaryLoadSample, done bool, err error) {
	s.count++
	if s.count > s.max {
		return BoundaryLoadSample{}, true, nil
	}
	f := ForceAt(t, s.amplitude, s.frequency)
	if err := s.strategy.Apply(ctx, eng, f); err != nil {
		return BoundaryLoadSample{}, false, err
	}
	return BoundaryLoadSample{Time: t, Force: f}, false, nil
}

// Count returns the number of invocations so far.
func (s *Scheduler) Count() int {
	return s.count
}
