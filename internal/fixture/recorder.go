// File: internal/fixture/recorder.go
package fixture

import (
	"context"
	"sync"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/journey"
)

// Recorder wraps a live Explorer and captures everything it sees and does
// as a Script, so a real browsing run can later replay offline.
type Recorder struct {
	inner journey.Explorer

	mu     sync.Mutex
	script Script
}

// NewRecorder wraps the inner explorer. The name labels the saved script.
func NewRecorder(inner journey.Explorer, name string) *Recorder {
	return &Recorder{inner: inner, script: Script{Name: name}}
}

// Observe forwards to the wrapped explorer and appends the page to the
// script. Failed observations are recorded as empty pages, matching how the
// engine treats them.
func (r *Recorder) Observe(ctx context.Context) (schemas.Observation, error) {
	obs, err := r.inner.Observe(ctx)

	r.mu.Lock()
	r.script.Steps = append(r.script.Steps, Step{Page: obs})
	r.mu.Unlock()

	return obs, err
}

// Act forwards to the wrapped explorer and attaches the outcome to the most
// recently observed page, keyed by the targeted ref.
func (r *Recorder) Act(ctx context.Context, req schemas.ActionRequest) (schemas.ActionOutcome, error) {
	out, err := r.inner.Act(ctx, req)

	r.mu.Lock()
	if n := len(r.script.Steps); n > 0 {
		step := &r.script.Steps[n-1]
		if step.Outcomes == nil {
			step.Outcomes = make(map[string]schemas.ActionOutcome)
		}
		step.Outcomes[req.Ref] = out
	}
	r.mu.Unlock()

	return out, err
}

// Script returns a copy of everything captured so far.
func (r *Recorder) Script() Script {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Script{Name: r.script.Name, Steps: make([]Step, len(r.script.Steps))}
	copy(out.Steps, r.script.Steps)
	return out
}
