// Package export persists recorded runs. CSV writes one file per metric;
// Uploader optionally pushes the written files to an HTTP endpoint.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/specialistvlad/shakegrid/internal/ctxlog"
	"github.com/specialistvlad/shakegrid/internal/recorder"
	"github.com/specialistvlad/shakegrid/internal/simerr"
)

// Exporter persists a run result and returns the paths it wrote.
type Exporter interface {
	Export(ctx context.Context, result *recorder.RunResult) ([]string, error)
}

// CSV writes `{scenario}_{metric}.csv` files with a `Time,<Label>` header into
// a directory, creating it when absent.
type CSV struct {
	Dir string
	// Metrics restricts and orders the files written. Empty means every
	// metric present in the result, in recorder.AllMetrics order.
	Metrics []recorder.Metric
}

var _ Exporter = (*CSV)(nil)

// NewCSV creates a CSV exporter writing into dir.
func NewCSV(dir string, metrics ...recorder.Metric) *CSV {
	return &CSV{Dir: dir, Metrics: metrics}
}

// Export implements Exporter. The result is only read, so on failure the
// caller can retry against another directory. Errors wrap
// simerr.ErrExportFailure.
func (c *CSV) Export(ctx context.Context, result *recorder.RunResult) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory '%s': %w", simerr.ErrExportFailure, c.Dir, err)
	}

	metrics := c.Metrics
	if len(metrics) == 0 {
		metrics = recorder.AllMetrics
	}

	var written []string
	for _, m := range metrics {
		samples, ok := result.Series[m]
		if !ok && len(c.Metrics) == 0 {
			continue
		}
		path := filepath.Join(c.Dir, fmt.Sprintf("%s_%s.csv", result.ScenarioName, m))
		if err := writeSeries(path, m, samples); err != nil {
			return written, fmt.Errorf("%w: %w", simerr.ErrExportFailure, err)
		}
		logger.Debug("Wrote metric file.", "metric", string(m), "path", path, "rows", len(samples))
		written = append(written, path)
	}
	return written, nil
}

func writeSeries(path string, m recorder.Metric, samples []recorder.Sample) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close '%s': %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Time", m.Label()}); err != nil {
		return fmt.Errorf("failed to write header of '%s': %w", path, err)
	}
	for _, s := range samples {
		row := []string{formatFloat(s.Time), formatFloat(s.Value)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write '%s': %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush '%s': %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
