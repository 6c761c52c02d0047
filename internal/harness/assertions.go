package harness

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s (seq %d, %d/%d %s)",
				ev.Step, ev.Op, ev.Kind, ev.Outcome, ev.Seq, ev.Index, ev.Length, ev.URL)
			if ev.Error != "" {
				fmt.Fprintf(&buf, " error=%s", ev.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// finalStateFields lists the fields final_state can check.
var finalStateFields = []string{"basename", "index", "kind", "length", "seq", "url"}

// assertFinalState checks the live store state using subset semantics.
func assertFinalState(result *Result, assertion Assertion) error {
	final := result.Final
	actual := ir.Object{
		"basename": ir.String(final.Basename),
		"index":    ir.Int(final.Index),
		"kind":     ir.String(final.Kind),
		"length":   ir.Int(final.Len()),
		"seq":      ir.Int(final.Seq),
		"url":      ir.String(final.Location().URL),
	}

	for _, key := range sortedKeys(assertion.Expect) {
		if !slices.Contains(finalStateFields, key) {
			return fmt.Errorf("final_state: unknown field %q (want one of %v)", key, finalStateFields)
		}
		if err := compareField(AssertFinalState, key, assertion.Expect[key], actual[key], result.Trace); err != nil {
			return err
		}
	}
	return nil
}

// assertEntries checks the final stack exactly.
func assertEntries(result *Result, assertion Assertion) error {
	if assertion.URLs != nil {
		urls := result.Final.URLs()
		if !slices.Equal(urls, assertion.URLs) {
			return &AssertionError{
				Type:     AssertEntries,
				Expected: fmt.Sprintf("urls %v", assertion.URLs),
				Actual:   fmt.Sprintf("urls %v", urls),
				Trace:    result.Trace,
			}
		}
	}

	if assertion.Keys != nil {
		keys := make([]string, len(result.Final.Entries))
		for i, e := range result.Final.Entries {
			keys[i] = e.Key
		}
		if !slices.Equal(keys, assertion.Keys) {
			return &AssertionError{
				Type:     AssertEntries,
				Expected: fmt.Sprintf("keys %v", assertion.Keys),
				Actual:   fmt.Sprintf("keys %v", keys),
				Trace:    result.Trace,
			}
		}
	}

	return nil
}

// assertTraceKinds checks the kinds of committed steps in order.
func assertTraceKinds(result *Result, assertion Assertion) error {
	kinds := result.CommittedKinds()
	if !slices.Equal(kinds, assertion.Kinds) {
		return &AssertionError{
			Type:     AssertTraceKinds,
			Expected: fmt.Sprintf("committed kinds %v", assertion.Kinds),
			Actual:   fmt.Sprintf("committed kinds %v", kinds),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertLocationState checks the current entry's state using subset
// semantics. Extra keys in the state are ignored.
func assertLocationState(result *Result, assertion Assertion) error {
	state := result.Final.Location().State
	for _, key := range sortedKeys(assertion.Expect) {
		actual, ok := state[key]
		if !ok {
			return &AssertionError{
				Type:     AssertLocationState,
				Expected: fmt.Sprintf("key %q to exist", key),
				Actual:   fmt.Sprintf("keys %v", state.SortedKeys()),
				Trace:    result.Trace,
			}
		}
		if err := compareField(AssertLocationState, key, assertion.Expect[key], actual, result.Trace); err != nil {
			return err
		}
	}
	return nil
}

// assertHostInSync checks that the host history mirrors the store.
func assertHostInSync(result *Result) error {
	urls := result.Final.URLs()
	if !slices.Equal(result.HostURLs, urls) || result.HostIndex != result.Final.Index {
		return &AssertionError{
			Type:     AssertHostInSync,
			Expected: fmt.Sprintf("host %v at %d", urls, result.Final.Index),
			Actual:   fmt.Sprintf("host %v at %d", result.HostURLs, result.HostIndex),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertPersisted checks the snapshot count and that the latest persisted
// snapshot is the live state.
func assertPersisted(ctx context.Context, st *store.Store, session string, result *Result, assertion Assertion) error {
	if len(result.Persisted) != assertion.Count {
		return &AssertionError{
			Type:     AssertPersisted,
			Expected: fmt.Sprintf("%d snapshots", assertion.Count),
			Actual:   fmt.Sprintf("%d snapshots", len(result.Persisted)),
			Trace:    result.Trace,
		}
	}

	latest, err := st.ReadLatest(ctx, session)
	if err != nil {
		return fmt.Errorf("persisted: read latest: %w", err)
	}
	want, err := ir.EntriesHash(result.Final.Entries)
	if err != nil {
		return fmt.Errorf("persisted: %w", err)
	}
	got, err := ir.EntriesHash(latest.Entries)
	if err != nil {
		return fmt.Errorf("persisted: %w", err)
	}
	if latest.Seq != result.Final.Seq || latest.Index != result.Final.Index || got != want {
		return &AssertionError{
			Type:     AssertPersisted,
			Expected: fmt.Sprintf("latest seq %d index %d %v", result.Final.Seq, result.Final.Index, result.Final.URLs()),
			Actual:   fmt.Sprintf("latest seq %d index %d %v", latest.Seq, latest.Index, latest.URLs()),
			Trace:    result.Trace,
		}
	}
	return nil
}

// compareField compares a decoded YAML value with a state value by their
// canonical encodings.
func compareField(typ, key string, expected any, actual ir.Value, trace []TraceEvent) error {
	want, err := ir.FromAny(expected)
	if err != nil {
		return fmt.Errorf("%s: field %q: %w", typ, key, err)
	}
	wantJSON, err := ir.MarshalCanonical(want)
	if err != nil {
		return fmt.Errorf("%s: field %q: %w", typ, key, err)
	}
	gotJSON, err := ir.MarshalCanonical(actual)
	if err != nil {
		return fmt.Errorf("%s: field %q: %w", typ, key, err)
	}
	if !bytes.Equal(wantJSON, gotJSON) {
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%s = %s", key, wantJSON),
			Actual:   fmt.Sprintf("%s = %s", key, gotJSON),
			Trace:    trace,
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store   *store.Store
	Session string
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for persisted assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertEntries:
			err = assertEntries(result, assertion)
		case AssertTraceKinds:
			err = assertTraceKinds(result, assertion)
		case AssertLocationState:
			err = assertLocationState(result, assertion)
		case AssertHostInSync:
			err = assertHostInSync(result)
		case AssertPersisted:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: persisted requires database context", i)
			} else {
				err = assertPersisted(actx.Ctx, actx.Store, actx.Session, result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
