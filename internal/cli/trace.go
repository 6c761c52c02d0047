package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - list sessions when empty
	Kind     string // optional - filter to a transition kind
	Hash     string // optional - list snapshots holding this stack
}

// TraceEvent is one persisted snapshot in the timeline.
type TraceEvent struct {
	Seq         int64        `json:"seq"`
	Kind        string       `json:"kind"`
	Index       int          `json:"index"`
	Length      int          `json:"length"`
	URL         string       `json:"url"`
	EntriesHash string       `json:"entries_hash"`
	Entries     []TraceEntry `json:"entries"`
}

// TraceEntry is one stack entry of a snapshot.
type TraceEntry struct {
	URL   string    `json:"url"`
	Key   string    `json:"key"`
	State ir.Object `json:"state"`
}

// TraceResult holds the complete trace output for a session.
type TraceResult struct {
	Session  string       `json:"session"`
	Basename string       `json:"basename"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Snapshots int            `json:"snapshots"`
	LastSeq   int64          `json:"last_seq"`
	Kinds     map[string]int `json:"kinds"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show persisted navigation history",
		Long: `Show the persisted snapshots of a navigation session.

Every applied transition is stored as a snapshot of the whole stack.
Without --session the sessions in the database are listed.
With --entries-hash the snapshots of any session holding that exact
stack are listed; verbose and JSON timelines show each snapshot's hash.

The output includes:
- Timeline: one line per snapshot with its kind, cursor and URL
- Stats: snapshot count, last seq and count per kind

Examples:
  navstate trace --db ./nav.db
  navstate trace --db ./nav.db --session 0192f7c4-...
  navstate trace --db ./nav.db --session demo --kind back
  navstate trace --db ./nav.db --session demo --format json
  navstate trace --db ./nav.db --entries-hash 9c1f...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to a transition kind (load|push|redirect|back|next|jump)")
	cmd.Flags().StringVar(&opts.Hash, "entries-hash", "", "list snapshots whose stack has this entries hash")
	cmd.MarkFlagsMutuallyExclusive("session", "entries-hash")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Kind != "" && !ir.ValidKinds[ir.Kind(opts.Kind)] {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q", opts.Kind))
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	if opts.Hash != "" {
		return listStackVisits(ctx, st, opts.Hash, formatter)
	}
	if opts.Session == "" {
		return listSessions(ctx, st, formatter)
	}

	snaps, err := st.ReadSession(ctx, opts.Session)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read session", err)
	}
	if len(snaps) == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("session not found: %s", opts.Session), nil)
	}

	result := TraceResult{
		Session:  opts.Session,
		Basename: snaps[0].Basename,
		Timeline: buildTimeline(snaps, ir.Kind(opts.Kind)),
		Stats: TraceStats{
			Snapshots: len(snaps),
			LastSeq:   snaps[len(snaps)-1].Seq,
			Kinds:     map[string]int{},
		},
	}
	for _, s := range snaps {
		result.Stats.Kinds[string(s.Kind)]++
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// buildTimeline converts snapshots to timeline events. When kind is set,
// only snapshots of that kind are included.
func buildTimeline(snaps []ir.Snapshot, kind ir.Kind) []TraceEvent {
	timeline := []TraceEvent{}
	for _, s := range snaps {
		if kind != "" && s.Kind != kind {
			continue
		}
		ev := TraceEvent{
			Seq:     s.Seq,
			Kind:    string(s.Kind),
			Index:   s.Index,
			Length:  s.Len(),
			URL:     s.Location().URL,
			Entries: make([]TraceEntry, len(s.Entries)),
		}
		// Read back from the log, which has already verified it.
		ev.EntriesHash, _ = ir.EntriesHash(s.Entries)
		for i, e := range s.Entries {
			ev.Entries[i] = TraceEntry{URL: e.URL, Key: e.Key, State: e.State}
		}
		timeline = append(timeline, ev)
	}
	return timeline
}

// listSessions prints every session in the database.
func listSessions(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list sessions", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(sessions)
	}

	w := formatter.Writer
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  basename=%q snapshots=%d seq=%d..%d\n",
			s.ID, s.Basename, s.Snapshots, s.FirstSeq, s.LastSeq)
	}
	return nil
}

// listStackVisits prints the snapshots whose stack hashed to hash.
func listStackVisits(ctx context.Context, st *store.Store, hash string, formatter *OutputFormatter) error {
	visits, err := st.SessionsReaching(ctx, hash)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to look up entries hash", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(visits)
	}

	w := formatter.Writer
	if len(visits) == 0 {
		fmt.Fprintf(w, "No snapshots with entries hash %s.\n", hash)
		return nil
	}
	for _, v := range visits {
		fmt.Fprintf(w, "%s  [%d] %-8s %s\n", v.Session, v.Seq, strings.ToUpper(v.Kind), v.URL)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	fmt.Fprintf(w, "Basename: %q\n", result.Basename)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no snapshots)")
	}
	for _, ev := range result.Timeline {
		formatTimelineEvent(w, ev, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Snapshots: %d\n", result.Stats.Snapshots)
	fmt.Fprintf(w, "  Last Seq:  %d\n", result.Stats.LastSeq)
	for _, k := range kindOrder {
		if n := result.Stats.Kinds[string(k)]; n > 0 {
			fmt.Fprintf(w, "  %-9s  %d\n", string(k)+":", n)
		}
	}

	return nil
}

// kindOrder fixes the order kinds are listed in.
var kindOrder = []ir.Kind{ir.KindLoad, ir.KindPush, ir.KindRedirect, ir.KindBack, ir.KindNext, ir.KindJump}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, ev TraceEvent, verbose bool) {
	fmt.Fprintf(w, "  [%d] %-8s %d/%d %s\n", ev.Seq, strings.ToUpper(ev.Kind), ev.Index+1, ev.Length, ev.URL)
	if !verbose {
		return
	}
	fmt.Fprintf(w, "       hash=%s\n", ev.EntriesHash)
	for i, e := range ev.Entries {
		marker := " "
		if i == ev.Index {
			marker = "*"
		}
		fmt.Fprintf(w, "       %s %s key=%s state=%s\n", marker, e.URL, truncateID(e.Key), formatState(e.State))
	}
}

// formatState formats a state object for display.
// Uses sorted keys to ensure deterministic output.
func formatState(obj ir.Object) string {
	if len(obj) == 0 {
		return "{}"
	}

	parts := make([]string, 0, len(obj))
	for _, k := range obj.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(obj[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v ir.Value) string {
	switch val := v.(type) {
	case ir.Object:
		return formatState(val)
	case ir.Array:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.String:
		return string(val)
	case ir.Null, nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long key for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
