package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/store"
	"github.com/kinware/redux-first-router/internal/testutil"
)

// play runs the play command with deterministic keys.
func play(t *testing.T, opts *PlayOptions, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	if opts.RootOptions == nil {
		opts.RootOptions = &RootOptions{Format: "text"}
	}
	if opts.Keys == nil {
		opts.Keys = testutil.NewSequentialKeys("key")
	}
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return buf, runPlay(opts, args, cmd)
}

func readSession(t *testing.T, dbPath, session string) []ir.Snapshot {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	snaps, err := st.ReadSession(context.Background(), session)
	require.NoError(t, err)
	return snaps
}

func TestParseStep(t *testing.T) {
	tests := []struct {
		arg   string
		op    string
		path  string
		n     int
		state ir.Object
	}{
		{"push /users/1", "push", "/users/1", 0, nil},
		{`push /a?q=1#top {"tab": "info"}`, "push", "/a?q=1#top", 0, ir.Object{"tab": ir.String("info")}},
		{"redirect 5", "redirect", "5", 0, nil},
		{`replace /login {"next": "/home"}`, "replace", "/login", 0, ir.Object{"next": ir.String("/home")}},
		{"jump -2", "jump", "", -2, nil},
		{"back", "back", "", 0, nil},
		{`next {"n": 1}`, "next", "", 0, ir.Object{"n": ir.Int(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			s, err := parseStep(tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.op, s.op)
			assert.Equal(t, tt.path, s.path)
			assert.Equal(t, tt.n, s.n)
			assert.Equal(t, tt.state, s.state)
		})
	}
}

func TestParseStep_Errors(t *testing.T) {
	tests := []struct {
		arg     string
		wantErr string
	}{
		{"fly /a", `unknown op "fly"`},
		{"push", "push requires a target"},
		{"jump two", `jump: invalid delta "two"`},
		{`back {"x": 1.5}`, "back: invalid state"},
		{"push /a not-json", "push: invalid state"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			_, err := parseStep(tt.arg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlay_NewSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nav.db")

	buf, err := play(t, &PlayOptions{Database: dbPath, Seed: usersSeed, Session: "demo"},
		"push /users/3", "back", `redirect 5 {"tab": "likes"}`)
	require.NoError(t, err, buf.String())

	output := buf.String()
	assert.Contains(t, output, "Session: demo")
	assert.Contains(t, output, "  [1] PUSH     3/3 /users/3")
	assert.Contains(t, output, "  [2] BACK     2/3 /users/1?tab=posts")
	assert.Contains(t, output, "  [3] REDIRECT 2/3 /users/5")
	assert.Contains(t, output, "Current: /app/users/5 (2 of 3)")

	snaps := readSession(t, dbPath, "demo")
	require.Len(t, snaps, 4)
	assert.Equal(t, ir.KindLoad, snaps[0].Kind)

	latest := snaps[3]
	assert.Equal(t, []string{"/", "/users/5", "/users/3"}, latest.URLs())
	assert.Equal(t, "key-4", latest.Entries[1].Key)
	assert.Equal(t, ir.Object{
		"scroll": ir.Int(120),
		"pinned": ir.Bool(true),
		"tab":    ir.String("likes"),
	}, latest.Entries[1].State)
}

func TestPlay_ResumeSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nav.db")

	_, err := play(t, &PlayOptions{Database: dbPath, Seed: usersSeed, Session: "demo"}, "push /users/3", "back")
	require.NoError(t, err)

	buf, err := play(t, &PlayOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    dbPath,
		Session:     "demo",
		Resume:      true,
	}, "next")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PlayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.Data.Resumed)
	require.Len(t, resp.Data.Steps, 1)
	assert.Equal(t, PlayStep{
		Step: "next", Kind: "next", Outcome: "committed",
		Seq: 3, Index: 2, Length: 3, URL: "/users/3",
	}, resp.Data.Steps[0])
	assert.Equal(t, "/app/users/3", resp.Data.Href)

	snaps := readSession(t, dbPath, "demo")
	require.Len(t, snaps, 4)
	assert.Equal(t, int64(3), snaps[3].Seq)
}

func TestPlay_OutOfRangeJump(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nav.db")

	buf, err := play(t, &PlayOptions{Database: dbPath, Seed: usersSeed, Session: "demo"}, "back", "jump 5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeOutOfRange)

	// The first step was applied and persisted before the failure.
	snaps := readSession(t, dbPath, "demo")
	require.Len(t, snaps, 2)
	assert.Equal(t, ir.KindBack, snaps[1].Kind)
}

func TestPlay_InvalidStep(t *testing.T) {
	buf, err := play(t, &PlayOptions{Database: "unused.db", Seed: usersSeed}, "fly /a")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeStep)
}

func TestPlay_FlagCombinations(t *testing.T) {
	tests := []struct {
		name    string
		opts    PlayOptions
		wantErr string
	}{
		{"neither seed nor resume", PlayOptions{}, "exactly one of --seed and --resume"},
		{"both seed and resume", PlayOptions{Seed: usersSeed, Resume: true, Session: "s"}, "exactly one of --seed and --resume"},
		{"resume without session", PlayOptions{Resume: true}, "--resume requires --session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.Database = filepath.Join(t.TempDir(), "nav.db")
			_, err := play(t, &opts, "back")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlay_ResumeUnknownSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nav.db")

	buf, err := play(t, &PlayOptions{Database: dbPath, Session: "ghost", Resume: true}, "back")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "session not found: ghost")
}

func TestPlay_ExistingSessionRequiresResume(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nav.db")

	_, err := play(t, &PlayOptions{Database: dbPath, Seed: usersSeed, Session: "demo"}, "back")
	require.NoError(t, err)

	buf, err := play(t, &PlayOptions{Database: dbPath, Seed: usersSeed, Session: "demo"}, "next")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "already exists")
}

func TestPlay_GeneratedSessionID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nav.db")

	buf, err := play(t, &PlayOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    dbPath,
		Seed:        usersSeed,
	}, "back")
	require.NoError(t, err)

	var resp struct {
		Data PlayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Len(t, resp.Data.Session, 36)
	assert.Len(t, readSession(t, dbPath, resp.Data.Session), 2)
}

func TestPlay_SaveFailureKeepsStepApplied(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nav.db")

	_, err := play(t, &PlayOptions{Database: dbPath, Seed: usersSeed, Session: "demo"}, "push /users/3")
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().Exec(`CREATE TRIGGER reject_snapshots BEFORE INSERT ON snapshots
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	buf, err := play(t, &PlayOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    dbPath,
		Session:     "demo",
		Resume:      true,
	}, "back", "next")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string     `json:"code"`
			Message string     `json:"message"`
			Details PlayResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "step 1 (back) applied but not persisted")

	// The step is reported as committed; the second step never ran.
	require.Len(t, resp.Error.Details.Steps, 1)
	assert.Equal(t, "committed", resp.Error.Details.Steps[0].Outcome)
	assert.Equal(t, 1, resp.Error.Details.Steps[0].Index)

	assert.Len(t, readSession(t, dbPath, "demo"), 2)
}
