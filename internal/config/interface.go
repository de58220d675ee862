package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/shakegrid/internal/ctxlog"
	"github.com/specialistvlad/shakegrid/internal/fsutil"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Extensions lists the file extensions the loader understands.
	Extensions() []string
	// LoadFile parses a single file and merges its content into the model.
	LoadFile(ctx context.Context, path string, into *Model) error
}

// MultiLoader discovers scenario files under a set of paths and dispatches
// each one to the loader registered for its extension.
type MultiLoader struct {
	byExt map[string]Loader
}

// NewMultiLoader builds a MultiLoader from format loaders. Two loaders
// claiming the same extension is a programming error and panics.
func NewMultiLoader(loaders ...Loader) *MultiLoader {
	m := &MultiLoader{byExt: make(map[string]Loader)}
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			if _, exists := m.byExt[ext]; exists {
				panic(fmt.Sprintf("extension '%s' already has a loader", ext))
			}
			m.byExt[ext] = l
		}
	}
	return m
}

// Load reads every matching file under paths into a single model. Soils
// are merged by name, later files winning; scenarios are appended in file
// order.
func (m *MultiLoader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	exts := make([]string, 0, len(m.byExt))
	for ext := range m.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	files, err := fsutil.FindFilesByExtension(paths, exts...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered scenario files.", "count", len(files), "extensions", exts)

	model := NewModel()
	for _, file := range files {
		loader, ok := m.byExt[strings.ToLower(filepath.Ext(file))]
		if !ok {
			continue
		}
		if err := loader.LoadFile(ctx, file, model); err != nil {
			return nil, err
		}
	}

	logger.Debug("Scenario loading complete.", "soils", len(model.Soils), "scenarios", len(model.Scenarios))
	return model, nil
}
