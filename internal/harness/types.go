package harness

import "github.com/kinware/redux-first-router/internal/ir"

// TraceEvent records one scenario step and the store state after it.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Kind    string `json:"kind,omitempty"` // proposed kind, empty if rejected
	Outcome string `json:"outcome"`        // pending, committed, vetoed, failed or rejected
	Error   string `json:"error,omitempty"`
	Seq     int64  `json:"seq"`
	Index   int    `json:"index"`
	Length  int    `json:"length"`
	URL     string `json:"url"`
}

// OutcomeRejected marks a step whose transition was refused before any
// listener saw it.
const OutcomeRejected = "rejected"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace contains one event per step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the live store state after the last step.
	Final ir.Snapshot `json:"final"`

	// HostURLs and HostIndex describe the in-memory host history.
	HostURLs  []string `json:"host_urls"`
	HostIndex int      `json:"host_index"`

	// Persisted holds every snapshot written for the run, ordered by seq.
	Persisted []ir.Snapshot `json:"persisted"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// CommittedKinds returns the kind of every committed step, in order.
func (r *Result) CommittedKinds() []string {
	kinds := []string{}
	for _, ev := range r.Trace {
		if ev.Outcome == "committed" {
			kinds = append(kinds, ev.Kind)
		}
	}
	return kinds
}
