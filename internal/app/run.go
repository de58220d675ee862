package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/specialistvlad/shakegrid/internal/catalog"
	"github.com/specialistvlad/shakegrid/internal/ctxlog"
	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/export"
	"github.com/specialistvlad/shakegrid/internal/harness"
	"github.com/specialistvlad/shakegrid/internal/recorder"
	"github.com/specialistvlad/shakegrid/internal/scenario"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one run of the batch.
type Outcome struct {
	Name   string
	Source string
	Report *harness.Report
	// UploadedTo lists the URLs the exported files were pushed to.
	UploadedTo []string
	Err        error
}

// Failed reports whether the run ended in error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Run executes every resolved scenario and prints a summary. One failing
// scenario never stops the others; Run returns an error when any failed.
func (a *App) Run(ctx context.Context) ([]Outcome, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	if len(a.entries) == 0 {
		a.logger.Warn("No scenarios to run.")
		return nil, nil
	}

	for _, e := range a.entries {
		a.tracker.Add(e.Name, e.Config.TotalSteps())
	}

	a.logger.Info("🚀 Starting batch...", "runs", len(a.entries), "workers", a.config.Workers)
	outcomes := make([]Outcome, len(a.entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)
	for i, entry := range a.entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil && entry.Err == nil {
				outcomes[i] = a.skip(gctx, entry, err)
				return nil
			}
			outcomes[i] = a.runOne(gctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	printSummary(a.outW, outcomes)

	var failed int
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	a.logger.Info("🏁 Batch finished.", "runs", len(outcomes), "failed", failed)
	if failed > 0 {
		return outcomes, fmt.Errorf("%d of %d scenarios failed", failed, len(outcomes))
	}
	return outcomes, nil
}

// runOne executes a single entry on its own engine and harness.
func (a *App) runOne(ctx context.Context, entry scenario.Entry) Outcome {
	logger := ctxlog.FromContext(ctx).With("scenario", entry.Name)
	out := Outcome{Name: entry.Name, Source: entry.Source}

	if entry.Err != nil {
		logger.Error("Scenario is invalid.", "source", entry.Source, "error", entry.Err)
		out.Err = entry.Err
		a.tracker.Finish(entry.Name, nil, entry.Err)
		return out
	}

	cfg := entry.Config
	if cfg.MaxWallClock == 0 {
		cfg.MaxWallClock = a.config.MaxWallClock
	}

	eng, err := a.registry.New(cfg.Engine, engine.Options{URL: cfg.EngineURL, Timeout: a.config.EngineTimeout})
	if err != nil {
		out.Err = fmt.Errorf("scenario %q: %w", entry.Name, err)
		logger.Error("Failed to create engine.", "engine", cfg.Engine, "error", err)
		a.tracker.Finish(entry.Name, nil, out.Err)
		return out
	}

	runID := uuid.NewString()
	dir := filepath.Join(a.config.OutputDir, cfg.Name)
	progress := harness.StepHandlerFunc(func(_ context.Context, sc harness.StepContext) error {
		a.tracker.Update(entry.Name, func(s *RunStatus) {
			s.State = harness.Running.String()
			s.RunID = runID
			s.Steps = sc.Step
			s.Samples = sc.Recorder.Len(recorder.Settlement)
		})
		return nil
	})

	h, err := harness.New(cfg, eng, export.NewCSV(dir, cfg.Metrics...),
		harness.WithRunID(runID),
		harness.WithStepHandler(cfg.SampleEvery, progress),
	)
	if err != nil {
		closeEngine(logger, eng)
		out.Err = fmt.Errorf("scenario %q: %w", entry.Name, err)
		a.tracker.Finish(entry.Name, nil, out.Err)
		return out
	}
	a.tracker.Update(entry.Name, func(s *RunStatus) { s.State = harness.Running.String(); s.RunID = runID })

	report, err := h.Start(ctx)
	out.Report, out.Err = report, err

	// A cancelled run is still exported, so its upload and catalog entry
	// must not inherit the cancellation.
	postCtx := context.WithoutCancel(ctx)
	if a.config.UploadURL != "" && report != nil && len(report.Files) > 0 {
		uploader := export.NewUploader(strings.TrimRight(a.config.UploadURL, "/") + "/" + cfg.Name)
		urls, upErr := uploader.Upload(postCtx, report.Files)
		out.UploadedTo = urls
		if upErr != nil {
			logger.Error("Upload failed.", "error", upErr)
			out.Err = errors.Join(out.Err, fmt.Errorf("scenario %q: upload: %w", entry.Name, upErr))
		}
	}

	a.tracker.Finish(entry.Name, report, out.Err)
	a.record(postCtx, cfg, dir, out)
	return out
}

// skip reports an entry that never started because the batch was cancelled
// while it waited for a worker. Nothing is exported, so earlier results in
// its output directory are left alone.
func (a *App) skip(ctx context.Context, entry scenario.Entry, cause error) Outcome {
	ctxlog.FromContext(ctx).Info("Skipping scenario, batch cancelled.", "scenario", entry.Name, "cause", cause)
	report := &harness.Report{
		Scenario: entry.Name,
		State:    harness.Cancelled,
		Reason:   "batch cancelled before start: " + cause.Error(),
	}
	a.tracker.Finish(entry.Name, report, nil)
	return Outcome{Name: entry.Name, Source: entry.Source, Report: report}
}

func closeEngine(logger *slog.Logger, eng engine.Engine) {
	if err := eng.Close(); err != nil {
		logger.Warn("Failed to close engine.", "error", err)
	}
}

// record stores the outcome in the catalog, if one is configured. A catalog
// failure is logged but does not fail the run.
func (a *App) record(ctx context.Context, cfg scenario.Config, dir string, out Outcome) {
	if a.catalog == nil || out.Report == nil {
		return
	}
	r := out.Report
	rec := &catalog.RunRecord{
		ID:          r.RunID,
		CreatedAt:   r.Started,
		Scenario:    cfg.Name,
		Soil:        cfg.Soil,
		Engine:      cfg.Engine,
		Policy:      string(cfg.Load.Policy),
		FrequencyHz: cfg.Load.FrequencyHz,
		Amplitude:   cfg.Load.Amplitude,
		Seed:        cfg.Seed,
		State:       r.State.String(),
		Reason:      r.Reason,
		Steps:       r.Steps,
		SimTime:     r.SimTime,
		ElapsedMS:   r.Elapsed.Milliseconds(),
		OutputDir:   dir,
	}
	rec.SetFiles(r.Files)
	if len(out.UploadedTo) > 0 {
		rec.UploadedTo = strings.TrimSuffix(out.UploadedTo[0], filepath.Base(out.UploadedTo[0]))
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	if err := a.catalog.Save(ctx, rec); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to record run in catalog.", "scenario", cfg.Name, "error", err)
	}
}
