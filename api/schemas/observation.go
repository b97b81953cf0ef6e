package schemas

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
)

// -- Page Observations --

// ElementRole classifies an interactive element by its affordance.
type ElementRole string

const (
	RoleLink     ElementRole = "link"
	RoleButton   ElementRole = "button"
	RoleInput    ElementRole = "input"
	RoleSelect   ElementRole = "select"
	RoleCheckbox ElementRole = "checkbox"
	RoleTab      ElementRole = "tab"
	RoleMenu     ElementRole = "menu"
	RoleOther    ElementRole = "other"
)

// Point is a viewport coordinate in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CandidateElement is one interactive element the simulated user could act
// on, as surfaced by an explorer.
type CandidateElement struct {
	// Ref is a stable node reference the explorer can resolve back to the
	// live element (or scripted outcome) when the action is dispatched.
	Ref   string      `json:"ref"`
	Label string      `json:"label"`
	Role  ElementRole `json:"role"`
	// Prominence is the element's visual weight on the page in [0,1],
	// combining size, position and emphasis.
	Prominence float64 `json:"prominence"`
	Position   Point   `json:"position"`
	// FlowDepth estimates how many further steps committing to this element
	// implies (e.g. entering a checkout funnel). Zero means a standalone hop.
	FlowDepth int    `json:"flow_depth,omitempty"`
	Href      string `json:"href,omitempty"`
}

// ContentKind classifies a block of visible page text.
type ContentKind string

const (
	ContentHeading   ContentKind = "heading"
	ContentParagraph ContentKind = "paragraph"
	ContentList      ContentKind = "list"
	ContentNav       ContentKind = "nav"
	ContentAlert     ContentKind = "alert"
)

// ContentBlock is a unit of visible text used for goal matching and for
// reading-cost estimation.
type ContentBlock struct {
	Kind ContentKind `json:"kind"`
	Text string      `json:"text"`
}

// InterruptKind classifies an attention-stealing event during a step.
type InterruptKind string

const (
	InterruptModal     InterruptKind = "modal"
	InterruptAlert     InterruptKind = "alert"
	InterruptFocusLoss InterruptKind = "focus_loss"
)

// InterruptSignal reports that something seized attention before the page
// could be engaged. The session pauses and pays a recovery penalty on resume.
type InterruptSignal struct {
	Kind InterruptKind `json:"kind"`
	// SimSeconds is how long the interruption held attention, in simulated
	// seconds.
	SimSeconds float64 `json:"sim_seconds"`
}

// Observation is a single structured snapshot of the current page, produced
// by an explorer. It is the only view of the world the engine ever sees.
type Observation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	// Fingerprint identifies the page for loop detection. Two visits to the
	// same logical page must produce the same fingerprint even when volatile
	// fragments (timestamps, session tokens) differ.
	Fingerprint string             `json:"fingerprint"`
	Candidates  []CandidateElement `json:"candidates"`
	Content     []ContentBlock     `json:"content,omitempty"`
	// GoalSignal is set by explorers that can positively confirm the goal
	// state (a fixture script, or an explicit success URL match).
	GoalSignal bool             `json:"goal_signal,omitempty"`
	Interrupt  *InterruptSignal `json:"interrupt,omitempty"`
}

// Empty reports whether the page offers nothing to act on.
func (o Observation) Empty() bool {
	return len(o.Candidates) == 0
}

// StructuralFingerprint hashes the page's stable skeleton: title, interactive
// affordances, and headings. Volatile fragments (query strings, timestamps,
// element positions) stay out so revisits hash identically.
func (o Observation) StructuralFingerprint() string {
	h := sha1.New()
	io.WriteString(h, o.Title)
	for _, c := range o.Candidates {
		fmt.Fprintf(h, "|%s:%s:%s", c.Role, c.Label, c.Href)
	}
	for _, b := range o.Content {
		if b.Kind == ContentHeading {
			fmt.Fprintf(h, "|h:%s", b.Text)
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// -- Actions --

// ActionKind is the kind of interaction dispatched to an explorer.
type ActionKind string

const (
	ActionClick    ActionKind = "click"
	ActionType     ActionKind = "type"
	ActionScroll   ActionKind = "scroll"
	ActionBack     ActionKind = "back"
	ActionNavigate ActionKind = "navigate"
	ActionNone     ActionKind = "none"
)

// ActionRequest is one interaction dispatched to an explorer. Ref addresses
// a candidate from the current observation; Text is only set for type
// actions.
type ActionRequest struct {
	Kind ActionKind `json:"kind"`
	Ref  string     `json:"ref,omitempty"`
	Text string     `json:"text,omitempty"`
}

// ActionErrorKind classifies an action failure for retry handling.
type ActionErrorKind string

const (
	// ActionErrNone marks a successful outcome.
	ActionErrNone ActionErrorKind = ""
	// ActionErrTimeout means the action did not settle in time.
	ActionErrTimeout ActionErrorKind = "timeout"
	// ActionErrDetached means the target element disappeared before the
	// action landed.
	ActionErrDetached ActionErrorKind = "node_detached"
	// ActionErrNavigation means a page load failed mid-action.
	ActionErrNavigation ActionErrorKind = "navigation_failed"
	// ActionErrBlocked means the page refused the interaction (disabled
	// control, permission wall). Retrying the same action cannot help.
	ActionErrBlocked ActionErrorKind = "blocked"
)

// Transient reports whether the failure is worth retrying.
func (k ActionErrorKind) Transient() bool {
	switch k {
	case ActionErrTimeout, ActionErrDetached, ActionErrNavigation:
		return true
	default:
		return false
	}
}

// ActionOutcome is the explorer's report of what an action did. Failures
// here are data, not errors: the engine folds them into emotional state and
// retry decisions.
type ActionOutcome struct {
	Success bool            `json:"success"`
	Error   ActionErrorKind `json:"error,omitempty"`
	// PageChanged is true when the action produced a new page fingerprint.
	PageChanged bool `json:"page_changed"`
	// LatencyMS is the wall-clock cost of the action as experienced by the
	// explorer. Fixture playback scripts it; live runs measure it.
	LatencyMS int64 `json:"latency_ms,omitempty"`
}
