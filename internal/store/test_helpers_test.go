package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kinware/redux-first-router/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertSession creates a bare session row.
func insertSession(t *testing.T, s *Store, id string) {
	t.Helper()
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, basename, engine_version, schema_version, first_seq)
		VALUES (?, '', '0.1.0', '1', 0)
	`, id)
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
}

// createTestSnapshot builds a snapshot over urls with keys "k0", "k1", ...
func createTestSnapshot(seq int64, kind ir.Kind, index int, urls ...string) ir.Snapshot {
	entries := make([]ir.Location, len(urls))
	for i, u := range urls {
		entries[i] = ir.Location{
			URL:      u,
			Pathname: u,
			State:    ir.Object{},
			Key:      fmt.Sprintf("k%d", i),
		}
	}
	return ir.Snapshot{Seq: seq, Index: index, Entries: entries, Kind: kind}
}
