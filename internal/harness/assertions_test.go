package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/store"
)

func loc(url, key string, state ir.Object) ir.Location {
	return ir.Location{URL: url, Pathname: url, Key: key, State: state}
}

// testResult is a result whose live state is /a, /b at index 1.
func testResult() *Result {
	r := NewResult()
	r.Final = ir.Snapshot{
		Seq:      3,
		Index:    1,
		Basename: "app",
		Kind:     ir.KindRedirect,
		Entries: []ir.Location{
			loc("/a", "k1", ir.Object{}),
			loc("/b", "k2", ir.Object{"tab": ir.String("info"), "n": ir.Int(2)}),
		},
	}
	r.HostURLs = []string{"/a", "/b"}
	r.HostIndex = 1
	r.Trace = []TraceEvent{
		{Step: 0, Op: "push", Kind: "push", Outcome: "committed", Seq: 1, Index: 1, Length: 2, URL: "/x"},
		{Step: 1, Op: "back", Kind: "back", Outcome: "vetoed", Seq: 1, Index: 1, Length: 2, URL: "/x"},
		{Step: 2, Op: "redirect", Kind: "redirect", Outcome: "committed", Seq: 2, Index: 1, Length: 2, URL: "/b"},
	}
	return r
}

func TestAssertFinalState(t *testing.T) {
	tests := []struct {
		name    string
		expect  map[string]any
		wantErr string
	}{
		{"all_fields", map[string]any{"index": 1, "length": 2, "kind": "redirect", "url": "/b", "seq": 3, "basename": "app"}, ""},
		{"subset", map[string]any{"index": 1}, ""},
		{"wrong_index", map[string]any{"index": 0}, "index = 0"},
		{"wrong_kind", map[string]any{"kind": "push"}, `kind = "push"`},
		{"type_mismatch", map[string]any{"seq": "3"}, `seq = "3"`},
		{"unknown_field", map[string]any{"current": 1}, `unknown field "current"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(testResult(), Assertion{Type: AssertFinalState, Expect: tt.expect})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertEntries(t *testing.T) {
	r := testResult()

	assert.NoError(t, assertEntries(r, Assertion{URLs: []string{"/a", "/b"}}))
	assert.NoError(t, assertEntries(r, Assertion{Keys: []string{"k1", "k2"}}))
	assert.NoError(t, assertEntries(r, Assertion{URLs: []string{"/a", "/b"}, Keys: []string{"k1", "k2"}}))

	err := assertEntries(r, Assertion{URLs: []string{"/a"}})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertEntries, aerr.Type)
	assert.Equal(t, "urls [/a /b]", aerr.Actual)

	err = assertEntries(r, Assertion{Keys: []string{"k2", "k1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keys [k1 k2]")
}

func TestAssertTraceKinds(t *testing.T) {
	r := testResult()

	assert.NoError(t, assertTraceKinds(r, Assertion{Kinds: []string{"push", "redirect"}}))

	err := assertTraceKinds(r, Assertion{Kinds: []string{"push", "back", "redirect"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "committed kinds [push redirect]")
}

func TestAssertLocationState(t *testing.T) {
	r := testResult()

	assert.NoError(t, assertLocationState(r, Assertion{Expect: map[string]any{"tab": "info"}}))
	assert.NoError(t, assertLocationState(r, Assertion{Expect: map[string]any{"tab": "info", "n": 2}}))

	err := assertLocationState(r, Assertion{Expect: map[string]any{"tab": "posts"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `tab = "info"`)

	err = assertLocationState(r, Assertion{Expect: map[string]any{"scroll": 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `key "scroll" to exist`)
}

func TestAssertHostInSync(t *testing.T) {
	r := testResult()
	assert.NoError(t, assertHostInSync(r))

	r.HostIndex = 0
	assert.Error(t, assertHostInSync(r))

	r = testResult()
	r.HostURLs = []string{"/a", "/b", "/c"}
	assert.Error(t, assertHostInSync(r))
}

func TestAssertPersisted(t *testing.T) {
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	r := testResult()
	require.NoError(t, st.WriteSnapshot(ctx, "s", r.Final))
	r.Persisted, err = st.ReadSession(ctx, "s")
	require.NoError(t, err)

	assert.NoError(t, assertPersisted(ctx, st, "s", r, Assertion{Count: 1}))

	err = assertPersisted(ctx, st, "s", r, Assertion{Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 snapshots")

	// Live state moved on without being saved.
	r.Final.Seq = 4
	err = assertPersisted(ctx, st, "s", r, Assertion{Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latest seq 3")
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{
		{Type: AssertFinalState, Expect: map[string]any{"index": 1}},
		{Type: AssertEntries, URLs: []string{"/a", "/b"}},
		{Type: AssertTraceKinds, Kinds: []string{"push", "redirect"}},
		{Type: AssertLocationState, Expect: map[string]any{"tab": "info"}},
		{Type: AssertHostInSync},
	}, nil)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{
		{Type: AssertFinalState, Expect: map[string]any{"index": 1}},
		{Type: AssertEntries, URLs: []string{"/z"}},
		{Type: AssertTraceKinds, Kinds: []string{}},
	}, nil)
	assert.Len(t, errs, 2)
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{{Type: "trace_count"}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "trace_count"`)
}

func TestEvaluateAssertions_PersistedWithoutContext(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{{Type: AssertPersisted, Count: 0}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "persisted requires database context")
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertEntries,
		Expected: "urls [/a]",
		Actual:   "urls [/a /b]",
		Trace: []TraceEvent{
			{Step: 0, Op: "push", Kind: "push", Outcome: "committed", Seq: 1, Index: 1, Length: 2, URL: "/b"},
			{Step: 1, Op: "jump", Outcome: OutcomeRejected, Error: ErrorOutOfRange, Seq: 1, Index: 1, Length: 2, URL: "/b"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: entries")
	assert.Contains(t, msg, "Expected: urls [/a]")
	assert.Contains(t, msg, "Actual: urls [/a /b]")
	assert.Contains(t, msg, "[0] push push -> committed (seq 1, 1/2 /b)")
	assert.Contains(t, msg, "error=out_of_range")
}
