package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/shakegrid/internal/catalog"
	"github.com/specialistvlad/shakegrid/internal/config"
	"github.com/specialistvlad/shakegrid/internal/ctxlog"
	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/scenario"
)

// ModelLoader reads scenario files into a model. config.MultiLoader is the
// production implementation.
type ModelLoader interface {
	Load(ctx context.Context, paths ...string) (*config.Model, error)
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *engine.Registry
	entries  []scenario.Entry
	tracker  *Tracker
	catalog  *catalog.Catalog

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads and resolves
// every scenario up front. A scenario file that cannot be parsed, or a
// catalog that cannot be opened, is a fatal startup error and panics; a
// scenario that fails validation is reported as a failed run instead.
func NewApp(outW io.Writer, appConfig *Config, loader ModelLoader, modules ...engine.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := engine.NewRegistry(modules...)
	logger.Debug("All engines registered.", "engines", reg.Names())

	var entries []scenario.Entry
	if appConfig.Preset != "" {
		cfg, err := scenario.FromPreset(appConfig.Preset)
		entries = []scenario.Entry{{Name: appConfig.Preset, Source: "preset", Config: cfg, Err: err}}
	} else {
		model, err := loader.Load(ctx, appConfig.ScenarioPaths...)
		if err != nil {
			panic(fmt.Errorf("failed to load scenarios: %w", err))
		}
		entries = scenario.ResolveModel(model)
	}
	entries = filterEntries(entries, appConfig.Only)
	logger.Debug("Scenarios resolved.", "runs", len(entries))

	var cat *catalog.Catalog
	if appConfig.CatalogPath != "" {
		c, err := catalog.Open(appConfig.CatalogPath)
		if err != nil {
			panic(err)
		}
		cat = c
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		entries:  entries,
		tracker:  NewTracker(),
		catalog:  cat,
	}
}

// Registry returns the application's engine registry. This is primarily for testing.
func (a *App) Registry() *engine.Registry {
	return a.registry
}

// Tracker returns the live status of the batch.
func (a *App) Tracker() *Tracker {
	return a.tracker
}

// Close releases the catalog.
func (a *App) Close() error {
	if a.catalog == nil {
		return nil
	}
	return a.catalog.Close()
}

func filterEntries(entries []scenario.Entry, only []string) []scenario.Entry {
	if len(only) == 0 {
		return entries
	}
	keep := make(map[string]bool, len(only))
	for _, name := range only {
		keep[name] = true
	}
	var out []scenario.Entry
	for _, e := range entries {
		if keep[e.Name] {
			out = append(out, e)
		}
	}
	return out
}
