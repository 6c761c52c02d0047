package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kinware/redux-first-router/internal/engine"
	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/location"
	"github.com/kinware/redux-first-router/internal/seed"
	"github.com/kinware/redux-first-router/internal/store"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Database string
	Seed     string
	Session  string
	Resume   bool

	// Keys allows overriding the key generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Keys engine.KeyGenerator
}

// PlayStep is the store state after one step.
type PlayStep struct {
	Step    string `json:"step"`
	Kind    string `json:"kind"`
	Outcome string `json:"outcome"`
	Seq     int64  `json:"seq"`
	Index   int    `json:"index"`
	Length  int    `json:"length"`
	URL     string `json:"url"`
}

// PlayResult holds the outcome of a play run.
type PlayResult struct {
	Session string     `json:"session"`
	Resumed bool       `json:"resumed"`
	Steps   []PlayStep `json:"steps"`
	Index   int        `json:"index"`
	Length  int        `json:"length"`
	Href    string     `json:"href"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <step>...",
		Short: "Apply transitions and persist them",
		Long: `Apply a sequence of transitions to a navigation store and persist
every applied snapshot to a SQLite database.

A new session starts from --seed. With --resume an existing session is
restored from its latest snapshot and continued.

Steps (quote each one):
  "push <path> [state-json]"       push a location
  "redirect <path> [state-json]"   replace the current entry, merging state
  "replace <path> [state-json]"    replace the current entry, dropping state
  "jump <n> [state-json]"          move n entries
  "back [state-json]"              jump -1
  "next [state-json]"              jump +1

Examples:
  navstate play --db ./nav.db --seed ./seeds/app.cue "push /users/1" back
  navstate play --db ./nav.db --session demo --seed ./seeds/app.cue 'push /a {"tab":"info"}'
  navstate play --db ./nav.db --session demo --resume "jump -1"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "seed file for a new session")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: new UUIDv7)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "continue an existing session")

	return cmd
}

// stepSpec is a parsed step argument.
type stepSpec struct {
	raw   string
	op    string
	path  string
	n     int
	state ir.Object
}

// parseStep parses "op [target] [state-json]".
func parseStep(arg string) (stepSpec, error) {
	s := stepSpec{raw: arg}
	fields := strings.SplitN(strings.TrimSpace(arg), " ", 2)
	s.op = fields[0]
	rest := ""
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}

	switch s.op {
	case "push", "redirect", "replace", "jump":
		target, tail, _ := strings.Cut(rest, " ")
		if target == "" {
			return s, fmt.Errorf("%s requires a target", s.op)
		}
		if s.op == "jump" {
			n, err := strconv.Atoi(target)
			if err != nil {
				return s, fmt.Errorf("jump: invalid delta %q", target)
			}
			s.n = n
		} else {
			s.path = target
		}
		rest = strings.TrimSpace(tail)
	case "back", "next":
	default:
		return s, fmt.Errorf("unknown op %q", s.op)
	}

	if rest != "" {
		if err := json.Unmarshal([]byte(rest), &s.state); err != nil {
			return s, fmt.Errorf("%s: invalid state: %w", s.op, err)
		}
	}
	return s, nil
}

func runPlay(opts *PlayOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())

	steps := make([]stepSpec, len(args))
	for i, arg := range args {
		s, err := parseStep(arg)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStep, fmt.Sprintf("step %d", i+1), err)
		}
		steps[i] = s
	}

	if opts.Resume == (opts.Seed != "") {
		return NewExitError(ExitCommandError, "exactly one of --seed and --resume is required")
	}
	if opts.Resume && opts.Session == "" {
		return NewExitError(ExitCommandError, "--resume requires --session")
	}

	keys := opts.Keys
	if keys == nil {
		keys = engine.UUIDv7Generator{}
	}
	session := opts.Session
	if session == "" {
		session = engine.UUIDv7Generator{}.Generate()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	locations := location.MustNewFactory(location.DefaultCacheSize)
	navOpts := []engine.Option{
		engine.WithKeys(keys),
		engine.WithLocations(locations),
		engine.WithLogger(logger),
	}

	var cfg engine.Config
	if opts.Resume {
		rp, err := st.Restore(ctx, session)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session not found: %s", session), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to restore session", err)
		}
		cfg = rp.Config
		navOpts = append(navOpts, engine.WithClock(rp.Clock))
		logger.Info("session restored", "session", session, "seq", rp.Clock.Current())
	} else {
		existing, err := st.ReadSession(ctx, session)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read session", err)
		}
		if len(existing) > 0 {
			return formatter.Fail(ExitCommandError, ErrCodeStep,
				fmt.Sprintf("session %s already exists (use --resume)", session), nil)
		}

		sd, err := seed.Load(opts.Seed)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeSeed, "failed to load seed", err)
		}
		cfg = sd.Build(locations, keys)
		cfg.Save = st.SaveFunc(ctx, session)
	}

	navOpts = append(navOpts, engine.WithDriver(engine.NewMemoryDriver(cfg.Entries, cfg.Index)))
	nav, err := engine.New(cfg, navOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSeed, "invalid initial state", err)
	}

	if !opts.Resume {
		if err := st.WriteSnapshot(ctx, session, nav.Snapshot()); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to persist initial snapshot", err)
		}
	}

	result := PlayResult{Session: session, Resumed: opts.Resume, Steps: []PlayStep{}}
	for i, s := range steps {
		t, err := applyStep(ctx, nav, s)
		if t != nil && t.Outcome() == engine.OutcomeCommitted {
			snap := nav.Snapshot()
			result.Steps = append(result.Steps, PlayStep{
				Step:    s.raw,
				Kind:    string(t.Kind()),
				Outcome: t.Outcome().String(),
				Seq:     snap.Seq,
				Index:   snap.Index,
				Length:  snap.Len(),
				URL:     snap.Location().URL,
			})
		}
		if err != nil {
			code, msg := ErrCodeCommitFailed, fmt.Sprintf("step %d (%s): %v", i+1, s.raw, err)
			switch {
			case engine.IsRangeError(err):
				code = ErrCodeOutOfRange
			case engine.IsSaveError(err):
				code = ErrCodeDatabase
				msg = fmt.Sprintf("step %d (%s) applied but not persisted: %v", i+1, s.raw, err)
			}
			_ = formatter.Error(code, msg, result)
			return WrapExitError(ExitFailure, fmt.Sprintf("step %d failed", i+1), err)
		}
	}

	result.Index = nav.Index()
	result.Length = nav.Len()
	result.Href = nav.Href(nav.Location())

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputPlayText(cmd.OutOrStdout(), result)
	return nil
}

// applyStep proposes one transition. With no listeners registered the
// store commits it immediately. A failed commit is returned as an error
// with a nil transition; a save error is returned together with the
// committed transition, whose snapshot stays applied.
func applyStep(ctx context.Context, nav *engine.Store, s stepSpec) (*engine.Transition, error) {
	var (
		t   *engine.Transition
		err error
	)
	switch s.op {
	case "push":
		t, err = nav.Push(ctx, s.path, s.state)
	case "redirect":
		t, err = nav.Redirect(ctx, s.path, s.state)
	case "replace":
		t, err = nav.Redirect(ctx, s.path, s.state, engine.WithoutMerge())
	case "jump":
		t, err = nav.Jump(ctx, s.n, s.state)
	case "back":
		t, err = nav.Back(ctx, s.state)
	case "next":
		t, err = nav.Next(ctx, s.state)
	}
	if err != nil {
		return nil, err
	}
	if t.Outcome() == engine.OutcomeFailed {
		return nil, t.Err()
	}
	return t, t.Err()
}

// outputPlayText outputs the play result as text.
func outputPlayText(w io.Writer, result PlayResult) {
	verb := "Session"
	if result.Resumed {
		verb = "Resumed session"
	}
	fmt.Fprintf(w, "%s: %s\n", verb, result.Session)
	for _, s := range result.Steps {
		fmt.Fprintf(w, "  [%d] %-8s %d/%d %s\n", s.Seq, strings.ToUpper(s.Kind), s.Index+1, s.Length, s.URL)
	}
	fmt.Fprintf(w, "Current: %s (%d of %d)\n", result.Href, result.Index+1, result.Length)
}
