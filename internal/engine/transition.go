package engine

import (
	"context"
	"sync"

	"github.com/kinware/redux-first-router/internal/ir"
)

// Outcome is the settled state of a Transition.
type Outcome int

const (
	// OutcomePending means no listener has decided yet.
	OutcomePending Outcome = iota
	// OutcomeCommitted means the side effect succeeded and the store applied
	// the proposed snapshot. Err holds a save error, if saving failed.
	OutcomeCommitted
	// OutcomeVetoed means a listener rejected the transition.
	OutcomeVetoed
	// OutcomeFailed means Commit ran but its side effect returned an error;
	// the store is unchanged.
	OutcomeFailed
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeCommitted:
		return "committed"
	case OutcomeVetoed:
		return "vetoed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// commitFunc performs a transition's side effect and applies it.
type commitFunc func(ctx context.Context) error

// Transition is the descriptor every listener receives for one requested
// navigation. Current and Proposed are private deep copies; listeners may
// read or even modify them but the store never sees changes made to them,
// before or after Commit.
//
// The first Commit or Veto settles the transition. Any later decision
// returns a settled error and has no effect.
//
// Thread-safety: Commit, Veto, Wait and Outcome are safe for concurrent use.
type Transition struct {
	// Current is the live state when the transition was requested.
	Current ir.Snapshot

	// Proposed is the state the store moves to on commit. Proposed.Seq is
	// zero until the commit stamps it.
	Proposed ir.Snapshot

	// Delta is the signed slot count of a jump, 0 for push and redirect.
	Delta int

	commit commitFunc

	mu       sync.Mutex
	deciding bool
	outcome  Outcome
	err      error
	done     chan struct{}
}

func newTransition(current, proposed ir.Snapshot, delta int, commit commitFunc) *Transition {
	return &Transition{
		Current:  current.Clone(),
		Proposed: proposed.Clone(),
		Delta:    delta,
		commit:   commit,
		done:     make(chan struct{}),
	}
}

// Kind returns the proposed transition kind.
func (t *Transition) Kind() ir.Kind {
	return t.Proposed.Kind
}

// Commit performs the external side effect and then applies the proposed
// snapshot to the store. It blocks until both have finished and returns the
// first error from either.
//
// A side-effect error settles the transition as OutcomeFailed with the
// store unchanged. A save error (IsSaveError) settles it as
// OutcomeCommitted: the snapshot stays applied and Commit and Err report
// the save error.
func (t *Transition) Commit(ctx context.Context) error {
	t.mu.Lock()
	if err := t.settledLocked(); err != nil {
		t.mu.Unlock()
		return err
	}
	t.deciding = true
	t.mu.Unlock()

	err := t.commit(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case err == nil:
		t.settleLocked(OutcomeCommitted, nil)
	case IsSaveError(err):
		t.settleLocked(OutcomeCommitted, err)
	default:
		t.settleLocked(OutcomeFailed, err)
	}
	return err
}

// Veto rejects the transition. The store's live state is left unchanged.
func (t *Transition) Veto(reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.settledLocked(); err != nil {
		return err
	}
	t.settleLocked(OutcomeVetoed, NewVetoedError(reason))
	return nil
}

// Done returns a channel closed once the transition has settled.
func (t *Transition) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the transition settles or ctx ends.
//
// It returns the outcome together with its error: nil for committed, a
// vetoed error for vetoed, the commit error for failed. If ctx ends first
// it returns OutcomePending and ctx.Err(); the transition stays open.
func (t *Transition) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.outcome, t.err
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

// Outcome returns the current outcome without blocking.
func (t *Transition) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Err returns the error the transition settled with, if any.
func (t *Transition) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Transition) settledLocked() error {
	if t.deciding && t.outcome == OutcomePending {
		return &NavigationError{Code: ErrCodeSettled, Message: "transition is already committing"}
	}
	if t.outcome != OutcomePending {
		return NewSettledError(t.outcome)
	}
	return nil
}

func (t *Transition) settleLocked(outcome Outcome, err error) {
	t.outcome = outcome
	t.err = err
	close(t.done)
}
