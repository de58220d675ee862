package harness

import (
	"context"

	"github.com/specialistvlad/shakegrid/internal/ctxlog"
	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/loading"
	"github.com/specialistvlad/shakegrid/internal/recorder"
)

// StepContext is what a step handler sees after an engine step.
type StepContext struct {
	// Step is the 1-based number of the step that just finished.
	Step   int
	Time   float64
	Load   loading.BoundaryLoadSample
	Engine engine.Engine
	// Recorder is the run's recorder. Handlers may append to it.
	Recorder *recorder.Recorder
	// Cancel stops the run at the next step boundary.
	Cancel func()
}

// StepHandler is invoked by the step loop on its registered cadence. A
// returned error fails the run.
type StepHandler interface {
	OnStep(ctx context.Context, sc StepContext) error
}

// StepHandlerFunc adapts a function to StepHandler.
type StepHandlerFunc func(ctx context.Context, sc StepContext) error

// OnStep implements StepHandler.
func (f StepHandlerFunc) OnStep(ctx context.Context, sc StepContext) error {
	return f(ctx, sc)
}

type registeredHandler struct {
	every   int
	handler StepHandler
}

// sampler is the built-in handler that feeds the recorder.
type sampler struct {
	domainVolume float64
}

func (s sampler) OnStep(ctx context.Context, sc StepContext) error {
	settlement := sc.Recorder.SampleSettlement(sc.Time, sc.Engine.Positions())
	ke, porosity := sc.Recorder.SampleEnergyPorosity(sc.Time, sc.Engine.KineticEnergy(), sc.Engine.Radii(), s.domainVolume)

	ctxlog.FromContext(ctx).Debug("Sampled.",
		"time", sc.Time,
		"settlement", settlement.Settlement,
		"rate", settlement.Rate,
		"force", sc.Load.Force,
		"kinetic_energy", ke,
		"porosity", porosity,
	)
	return nil
}
