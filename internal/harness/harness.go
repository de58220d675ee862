// Package harness runs one scenario against a DEM engine.
//
// A Harness owns its engine, scheduler and recorder for the lifetime of one
// run: it builds the packing, registers it with the engine, then loops
// load → engine step → step handlers until the scheduler signals the end, the
// run is cancelled, or the engine fails. Completed and cancelled runs are
// exported and their buffers cleared; a failed run is exported on a
// best-effort basis.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/shakegrid/internal/ctxlog"
	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/export"
	"github.com/specialistvlad/shakegrid/internal/loading"
	"github.com/specialistvlad/shakegrid/internal/packing"
	"github.com/specialistvlad/shakegrid/internal/recorder"
	"github.com/specialistvlad/shakegrid/internal/scenario"
	"github.com/specialistvlad/shakegrid/internal/simerr"
)

// wallThicknessRatio sizes the bounding walls relative to the domain height.
const wallThicknessRatio = 0.05

// Report summarises a finished run.
type Report struct {
	RunID    string
	Scenario string
	State    State
	// Reason says why the run stopped.
	Reason  string
	Steps   int
	SimTime float64
	Samples map[recorder.Metric]int
	Files   []string
	Started time.Time
	Elapsed time.Duration
	Err     error
}

// Harness runs a single scenario. It is single use: a second Start fails
// with simerr.ErrAlreadyStarted.
type Harness struct {
	cfg      scenario.Config
	eng      engine.Engine
	exporter export.Exporter
	handlers []registeredHandler
	runID    string
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	rec    *recorder.Recorder
	cancel chan struct{}
	once   sync.Once
}

// New creates a harness in the Configured state. The harness takes ownership
// of eng and closes it when the run ends.
func New(cfg scenario.Config, eng engine.Engine, exporter export.Exporter, opts ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eng == nil {
		return nil, errors.New("harness needs an engine")
	}
	if exporter == nil {
		return nil, errors.New("harness needs an exporter")
	}
	h := &Harness{
		cfg:      cfg,
		eng:      eng,
		exporter: exporter,
		cancel:   make(chan struct{}),
		handlers: []registeredHandler{{every: cfg.SampleEvery, handler: sampler{domainVolume: cfg.DomainVolume()}}},
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, fmt.Errorf("%w: %w", simerr.ErrInvalidConfig, err)
		}
	}
	if h.runID == "" {
		h.runID = uuid.NewString()
	}
	return h, nil
}

// RunID returns the id of the run.
func (h *Harness) RunID() string { return h.runID }

// State returns the current lifecycle state.
func (h *Harness) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Cancel asks a running harness to stop at the next step boundary. It is safe
// to call from any goroutine, any number of times.
func (h *Harness) Cancel() {
	h.once.Do(func() { close(h.cancel) })
}

// Result returns a copy of the samples currently buffered. Call it after
// Start returns: after a successful export the buffers are empty, after a
// failed export they still hold the run so the caller can export it
// elsewhere.
func (h *Harness) Result() *recorder.RunResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rec == nil {
		return &recorder.RunResult{ScenarioName: h.cfg.Name, RunID: h.runID, Series: map[recorder.Metric][]recorder.Sample{}}
	}
	return h.rec.Result(h.cfg.Name, h.runID)
}

func (h *Harness) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// Start runs the scenario to a terminal state and returns its report. The
// returned error is the report's Err: nil for a completed or cancelled run
// that exported cleanly.
func (h *Harness) Start(ctx context.Context) (*Report, error) {
	h.mu.Lock()
	if h.state != Configured {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: harness for %q is %s", simerr.ErrAlreadyStarted, h.cfg.Name, h.state)
	}
	h.state = Running
	h.rec = recorder.New(h.cfg.DomainHeight(), h.cfg.SettlementThreshold)
	h.mu.Unlock()

	if h.logger != nil {
		ctx = ctxlog.WithLogger(ctx, h.logger)
	}
	ctx = ctxlog.With(ctx, "scenario", h.cfg.Name, "run_id", h.runID)
	logger := ctxlog.FromContext(ctx)

	report := &Report{RunID: h.runID, Scenario: h.cfg.Name, Started: time.Now()}
	defer func() {
		if err := h.eng.Close(); err != nil {
			logger.Warn("Failed to close engine.", "error", err)
		}
	}()

	logger.Info("Starting run.",
		"engine", h.cfg.Engine,
		"particles", h.cfg.ParticleCount,
		"steps", h.cfg.TotalSteps(),
		"frequency_hz", h.cfg.Load.FrequencyHz,
		"amplitude", h.cfg.Load.Amplitude,
		"policy", string(h.cfg.Load.Policy),
	)

	state, reason, err := h.run(ctx, report)
	report.State, report.Reason = state, reason
	report.SimTime = h.eng.Time()
	report.Elapsed = time.Since(report.Started)

	switch state {
	case Completed, Cancelled:
		report.Err = h.export(ctx, report)
	case Failed:
		report.Err = err
		if h.rec.Len(recorder.Force) > 0 {
			if exportErr := h.export(ctx, report); exportErr != nil {
				logger.Warn("Partial export failed.", "error", exportErr)
			}
		}
	}
	h.setState(state)

	if report.Err != nil {
		logger.Error("Run failed.", "state", state.String(), "reason", reason, "error", report.Err)
	} else {
		logger.Info("Run finished.", "state", state.String(), "reason", reason, "steps", report.Steps,
			"sim_time", report.SimTime, "elapsed", report.Elapsed.String(), "files", len(report.Files))
	}
	return report, report.Err
}

func (h *Harness) run(ctx context.Context, report *Report) (State, string, error) {
	particles, err := packing.Generate(h.cfg.PackingParams())
	if err != nil {
		return Failed, "packing failed", h.fail(0, 0, err)
	}

	setup := engine.Setup{
		Particles:   particles.Particles,
		Material:    h.cfg.Material.Engine(),
		Boundaries:  engine.AABBWalls(h.cfg.DomainSize, wallThicknessRatio*h.cfg.DomainHeight()),
		Gravity:     h.cfg.Gravity,
		Damping:     h.cfg.Damping,
		TimeStep:    h.cfg.TimeStep,
		SpacingHint: particles.SpacingHint,
	}
	ctxlog.FromContext(ctx).Info("Packing generated.",
		"packing", particles.String(),
		"spacing_hint", particles.SpacingHint,
		"solid_fraction", particles.SolidVolume()/h.cfg.DomainVolume(),
	)
	if err := h.eng.Load(ctx, setup); err != nil {
		return Failed, "engine load failed", h.fail(0, 0, engineFailure(err))
	}

	sched := loading.NewScheduler(h.cfg.Load.Amplitude, h.cfg.Load.FrequencyHz, strategyFor(h.cfg), h.cfg.TotalSteps())

	var deadline <-chan time.Time
	if h.cfg.MaxWallClock > 0 {
		timer := time.NewTimer(h.cfg.MaxWallClock)
		defer timer.Stop()
		deadline = timer.C
	}

	for step := 1; ; step++ {
		select {
		case <-h.cancel:
			return Cancelled, "cancel requested", nil
		case <-ctx.Done():
			return Cancelled, "context done: " + ctx.Err().Error(), nil
		case <-deadline:
			return Cancelled, fmt.Sprintf("wall clock limit %s reached", h.cfg.MaxWallClock), nil
		default:
		}

		t := h.eng.Time()
		load, done, err := sched.Tick(ctx, h.eng, t)
		if err != nil {
			return Failed, "load failed", h.fail(step, t, engineFailure(err))
		}
		if done {
			ctxlog.FromContext(ctx).Debug("Load schedule exhausted.", "invocations", sched.Count())
			return Completed, "all steps done", nil
		}
		h.rec.RecordForce(load.Time, load.Force)

		if err := h.eng.Step(ctx); err != nil {
			return Failed, "engine step failed", h.fail(step, t, engineFailure(err))
		}
		report.Steps = step

		sc := StepContext{
			Step:     step,
			Time:     h.eng.Time(),
			Load:     load,
			Engine:   h.eng,
			Recorder: h.rec,
			Cancel:   h.Cancel,
		}
		for _, rh := range h.handlers {
			if step%rh.every != 0 {
				continue
			}
			if err := rh.handler.OnStep(ctx, sc); err != nil {
				return Failed, "step handler failed", h.fail(step, sc.Time, err)
			}
		}
	}
}

func (h *Harness) fail(step int, t float64, err error) error {
	return &simerr.ScenarioError{Scenario: h.cfg.Name, Step: step, Time: t, Err: err}
}

func (h *Harness) export(ctx context.Context, report *Report) error {
	h.mu.Lock()
	result := h.rec.Result(h.cfg.Name, h.runID)
	h.mu.Unlock()

	report.Samples = make(map[recorder.Metric]int, len(result.Series))
	for m, s := range result.Series {
		report.Samples[m] = len(s)
	}

	files, err := h.exporter.Export(ctx, result)
	report.Files = files
	if err != nil {
		return h.fail(0, 0, err)
	}

	h.mu.Lock()
	h.rec.Reset()
	h.mu.Unlock()
	return nil
}

func engineFailure(err error) error {
	if errors.Is(err, simerr.ErrEngineFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", simerr.ErrEngineFailure, err)
}

func strategyFor(cfg scenario.Config) loading.Strategy {
	if cfg.Load.Policy == scenario.ShearLoad {
		return loading.TopLayerShear{Height: cfg.DomainHeight(), Threshold: cfg.Load.ShearThreshold}
	}
	return loading.BoundaryForce{Boundary: engine.TopWall}
}
