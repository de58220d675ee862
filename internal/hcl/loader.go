package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/shakegrid/internal/config"
	"github.com/specialistvlad/shakegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	parser *hclparse.Parser
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".hcl"}
}

// evalContext returns the functions available to expressions in scenario
// files, e.g. `frequency_hz = range(0.5, 2.5, 0.5)` inside a sweep.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"range":  stdlib.RangeFunc,
			"concat": stdlib.ConcatFunc,
			"min":    stdlib.MinFunc,
			"max":    stdlib.MaxFunc,
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"format": stdlib.FormatFunc,
		},
	}
}

// LoadFile implements config.Loader.
func (l *Loader) LoadFile(ctx context.Context, path string, into *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing HCL scenario file.", "path", path)

	hclFile, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, evalContext(), &root)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	for _, s := range root.Soils {
		into.Soils[s.Name] = translateSoil(s)
	}
	for _, s := range root.Scenarios {
		scenario, err := translateScenario(s, path)
		if err != nil {
			return fmt.Errorf("in %s: %w", path, err)
		}
		into.Scenarios = append(into.Scenarios, scenario)
	}

	logger.Debug("HCL scenario file loaded.", "path", path, "soils", len(root.Soils), "scenarios", len(root.Scenarios))
	return nil
}
