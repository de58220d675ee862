package harness

import (
	"fmt"
	"log/slog"
)

// Option configures a Harness.
type Option func(*Harness) error

// WithStepHandler registers a handler run after every `every` steps.
func WithStepHandler(every int, h StepHandler) Option {
	return func(hs *Harness) error {
		if every <= 0 {
			return fmt.Errorf("step handler cadence must be positive, got %d", every)
		}
		if h == nil {
			return fmt.Errorf("step handler must not be nil")
		}
		hs.handlers = append(hs.handlers, registeredHandler{every: every, handler: h})
		return nil
	}
}

// WithRunID sets the run id. A random UUID is used otherwise.
func WithRunID(id string) Option {
	return func(hs *Harness) error {
		hs.runID = id
		return nil
	}
}

// WithLogger sets the base logger. The logger of the Start context is used
// otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(hs *Harness) error {
		hs.logger = l
		return nil
	}
}
