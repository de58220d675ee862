// Package simerr defines the error kinds shared by the scenario, harness and
// export packages. Callers classify failures with errors.Is against the
// sentinels below; ScenarioError adds the scenario name and the step at which
// the failure was observed.
package simerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks a malformed or out-of-range scenario or material
	// field. It is raised before any engine interaction and is never retried.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrEngineFailure marks an unrecoverable error reported by the physics
	// engine while loading or stepping.
	ErrEngineFailure = errors.New("engine failure")

	// ErrExportFailure marks an output directory that cannot be created or a
	// file that cannot be written.
	ErrExportFailure = errors.New("export failure")

	// ErrAlreadyStarted is returned when Start is called on a harness that
	// has left the Configured state.
	ErrAlreadyStarted = errors.New("harness already started")
)

// InvalidConfig builds an ErrInvalidConfig error for a named field.
func InvalidConfig(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

// ScenarioError wraps an error with the scenario it belongs to and the
// position in the step loop where it happened.
type ScenarioError struct {
	Scenario string
	Step     int
	Time     float64
	Err      error
}

func (e *ScenarioError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("scenario %q failed at step %d (t=%g): %v", e.Scenario, e.Step, e.Time, e.Err)
	}
	return fmt.Sprintf("scenario %q failed: %v", e.Scenario, e.Err)
}

func (e *ScenarioError) Unwrap() error {
	return e.Err
}
