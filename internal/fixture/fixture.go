// Package fixture provides an offline Explorer for deterministic journeys:
// scripted page sequences loaded from JSON, static HTML parsed into
// observations, and a recorder that captures a live run as a replayable
// script.
package fixture

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Step is one scripted page and the outcomes its actions produce.
type Step struct {
	Page schemas.Observation `json:"page"`
	// Outcomes maps a candidate ref to the outcome acting on it yields.
	Outcomes map[string]schemas.ActionOutcome `json:"outcomes,omitempty"`
	// Outcome is the fallback for refs not listed in Outcomes.
	Outcome *schemas.ActionOutcome `json:"outcome,omitempty"`
}

// Script is an ordered, replayable walk through a site.
type Script struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Validate rejects scripts a journey cannot run against.
func (s Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("fixture: script %q has no steps", s.Name)
	}
	return nil
}

// LoadScript decodes a script from JSON.
func LoadScript(r io.Reader) (Script, error) {
	var s Script
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Script{}, fmt.Errorf("fixture: decoding script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// LoadScriptFile reads and decodes a script file.
func LoadScriptFile(path string) (Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return Script{}, fmt.Errorf("fixture: opening script %s: %w", path, err)
	}
	defer f.Close()
	return LoadScript(f)
}

// Save writes the script as indented JSON.
func (s Script) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("fixture: encoding script: %w", err)
	}
	return nil
}

// Player replays a Script as an Explorer. Each Observe serves the next
// scripted page; once the script runs out, the final page repeats, which
// lets loop and no-progress behavior play out naturally. A Player drives
// one journey; build a fresh one per run.
type Player struct {
	script Script

	mu       sync.Mutex
	observed int
	current  int
}

// NewPlayer validates the script and readies it for a single run.
func NewPlayer(script Script) (*Player, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &Player{script: script, current: -1}, nil
}

// Observe serves the next scripted page.
func (p *Player) Observe(ctx context.Context) (schemas.Observation, error) {
	if err := ctx.Err(); err != nil {
		return schemas.Observation{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.observed
	if i >= len(p.script.Steps) {
		i = len(p.script.Steps) - 1
	}
	p.observed++
	p.current = i
	return p.script.Steps[i].Page, nil
}

// Act resolves the outcome the current page scripts for the targeted ref.
// Unscripted actions land cleanly.
func (p *Player) Act(ctx context.Context, req schemas.ActionRequest) (schemas.ActionOutcome, error) {
	if err := ctx.Err(); err != nil {
		return schemas.ActionOutcome{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < 0 {
		return schemas.ActionOutcome{}, fmt.Errorf("fixture: act before first observation")
	}
	step := p.script.Steps[p.current]
	if out, ok := step.Outcomes[req.Ref]; ok {
		return out, nil
	}
	if step.Outcome != nil {
		return *step.Outcome, nil
	}
	return schemas.ActionOutcome{
		Success:     true,
		PageChanged: req.Kind != schemas.ActionType,
		LatencyMS:   120,
	}, nil
}
