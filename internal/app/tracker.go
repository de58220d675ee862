package app

import (
	"sync"

	"github.com/specialistvlad/shakegrid/internal/harness"
)

// RunStatus is the live view of one run of the batch.
type RunStatus struct {
	Scenario   string   `json:"scenario"`
	RunID      string   `json:"run_id,omitempty"`
	State      string   `json:"state"`
	Steps      int      `json:"steps"`
	TotalSteps int      `json:"total_steps"`
	Samples    int      `json:"samples"`
	Files      []string `json:"files,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Tracker records the progress of every run. It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	order []string
	runs  map[string]*RunStatus
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*RunStatus)}
}

// Add registers a pending run.
func (t *Tracker) Add(name string, totalSteps int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.runs[name]; !ok {
		t.order = append(t.order, name)
	}
	t.runs[name] = &RunStatus{Scenario: name, State: "pending", TotalSteps: totalSteps}
}

// Update applies fn to the status of a run.
func (t *Tracker) Update(name string, fn func(s *RunStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.runs[name]; ok {
		fn(s)
	}
}

// Finish records the final report of a run.
func (t *Tracker) Finish(name string, report *harness.Report, err error) {
	t.Update(name, func(s *RunStatus) {
		if report != nil {
			s.RunID = report.RunID
			s.State = report.State.String()
			s.Steps = report.Steps
			s.Files = append([]string(nil), report.Files...)
			s.Samples = 0
			for _, n := range report.Samples {
				s.Samples += n
			}
		} else {
			s.State = harness.Failed.String()
		}
		if err != nil {
			s.Error = err.Error()
		}
	})
}

// Snapshot returns a copy of every status in registration order.
func (t *Tracker) Snapshot() []RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RunStatus, 0, len(t.order))
	for _, name := range t.order {
		s := *t.runs[name]
		s.Files = append([]string(nil), s.Files...)
		out = append(out, s)
	}
	return out
}
