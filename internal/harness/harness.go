package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kinware/redux-first-router/internal/engine"
	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/location"
	"github.com/kinware/redux-first-router/internal/store"
	"github.com/kinware/redux-first-router/internal/testutil"
)

// Option configures a run.
type Option func(*config)

type config struct {
	logger *slog.Logger
	db     *store.Store
}

// WithLogger sets the logger passed to the engine. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithStore persists the run into db instead of a fresh in-memory
// database. The scenario name must not already be a session in db.
func WithStore(db *store.Store) Option {
	return func(c *config) {
		c.db = db
	}
}

// Harness drives one scenario. It is the store's only listener.
type Harness struct {
	nav    *engine.Store
	driver *engine.MemoryDriver
	logger *slog.Logger

	// decision applies to transitions proposed by the current step
	decision string
	reason   string

	// deferred transitions in proposal order
	pending []*engine.Transition
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database unless WithStore is
// given. Sequential keys make repeated runs produce identical traces.
//
// Execution flow:
// 1. Build the seed into an engine configuration
// 2. Persist the initial snapshot as seq 0
// 3. Execute steps, recording one trace event each
// 4. Collect final, host and persisted state
// 5. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := context.Background()

	db := cfg.db
	if db == nil {
		mem, err := store.Open(store.MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer mem.Close()
		db = mem
	} else {
		existing, err := db.ReadSession(ctx, scenario.Name)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return nil, fmt.Errorf("session %q already exists", scenario.Name)
		}
	}

	sd, err := scenario.loadSeed()
	if err != nil {
		return nil, fmt.Errorf("failed to load seed: %w", err)
	}

	locations := location.MustNewFactory(location.DefaultCacheSize)
	keys := testutil.NewSequentialKeys("key")
	navCfg := sd.Build(locations, keys)
	navCfg.Save = db.SaveFunc(ctx, scenario.Name)

	h := &Harness{
		driver: engine.NewMemoryDriver(navCfg.Entries, navCfg.Index),
		logger: cfg.logger,
	}

	nav, err := engine.New(navCfg,
		engine.WithDriver(h.driver),
		engine.WithKeys(keys),
		engine.WithLocations(locations),
		engine.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	h.nav = nav
	nav.Listen(engine.ListenerFunc(h.onTransition))

	if err := db.WriteSnapshot(ctx, scenario.Name, nav.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to persist initial snapshot: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.executeStep(ctx, i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.Trace = append(result.Trace, ev)

		if ev.Error != step.ExpectError {
			if step.ExpectError == "" {
				result.AddError(fmt.Sprintf("steps[%d]: unexpected %s error", i, ev.Error))
			} else {
				result.AddError(fmt.Sprintf("steps[%d]: expected %s error, got %q", i, step.ExpectError, ev.Error))
			}
		}

		h.logger.Info("step completed",
			"step", i,
			"op", step.Op,
			"kind", ev.Kind,
			"outcome", ev.Outcome,
			"seq", ev.Seq,
		)
	}

	result.Final = nav.Snapshot()
	result.HostURLs = h.driver.URLs()
	result.HostIndex = h.driver.Index()
	result.Persisted, err = db.ReadSession(ctx, scenario.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted session: %w", err)
	}

	actx := &AssertionContext{
		Store:   db,
		Session: scenario.Name,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// onTransition applies the current step's decision.
func (h *Harness) onTransition(ctx context.Context, t *engine.Transition) {
	switch h.decision {
	case DecisionVeto:
		_ = t.Veto(h.reason)
	case DecisionDefer:
		h.pending = append(h.pending, t)
	default:
		// Error is recorded on the transition.
		_ = t.Commit(ctx)
	}
}

// executeStep runs one step and records the store state after it.
// A returned error is a scenario mistake, not a navigation error.
func (h *Harness) executeStep(ctx context.Context, i int, step Step) (TraceEvent, error) {
	var state ir.Object
	if step.State != nil {
		var err error
		if state, err = ir.ObjectFromMap(step.State); err != nil {
			return TraceEvent{}, fmt.Errorf("state: %w", err)
		}
	}

	h.decision = step.Decision
	h.reason = step.Reason

	var (
		t      *engine.Transition
		opErr  error
		settle bool
	)
	switch step.Op {
	case OpPush:
		t, opErr = h.nav.Push(ctx, step.Path, state)
	case OpRedirect:
		var opts []engine.RedirectOption
		if step.Merge != nil {
			opts = append(opts, engine.WithMerge(*step.Merge))
		}
		t, opErr = h.nav.Redirect(ctx, step.Path, state, opts...)
	case OpJump:
		t, opErr = h.nav.Jump(ctx, step.N, state)
	case OpBack:
		t, opErr = h.nav.Back(ctx, state)
	case OpNext:
		t, opErr = h.nav.Next(ctx, state)
	case OpSettle:
		if len(h.pending) == 0 {
			return TraceEvent{}, fmt.Errorf("no deferred transition to settle")
		}
		t = h.pending[0]
		h.pending = h.pending[1:]
		settle = true
	default:
		return TraceEvent{}, fmt.Errorf("unknown op %q", step.Op)
	}

	if settle {
		if step.Decision == DecisionVeto {
			opErr = t.Veto(step.Reason)
		} else {
			opErr = t.Commit(ctx)
		}
		if opErr != nil && !engine.IsSettledError(opErr) {
			// Failed commits are reported through the transition.
			opErr = nil
		}
	}

	ev := TraceEvent{Step: i, Op: step.Op}
	switch {
	case opErr != nil:
		ev.Outcome = OutcomeRejected
		ev.Error = errorClass(opErr)
		if t != nil {
			ev.Kind = string(t.Kind())
		}
	default:
		ev.Kind = string(t.Kind())
		outcome := t.Outcome()
		ev.Outcome = outcome.String()
		if outcome != engine.OutcomeVetoed {
			// failed commits, and committed ones whose save failed
			ev.Error = errorClass(t.Err())
		}
	}

	snap := h.nav.Snapshot()
	ev.Seq = snap.Seq
	ev.Index = snap.Index
	ev.Length = snap.Len()
	ev.URL = snap.Location().URL
	return ev, nil
}

// errorClass maps a navigation error to its trace name.
func errorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case engine.IsRangeError(err):
		return ErrorOutOfRange
	case engine.IsSettledError(err):
		return ErrorSettled
	case engine.IsSaveError(err):
		return ErrorSaveFailed
	default:
		return ErrorFailed
	}
}
