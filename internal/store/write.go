package store

import (
	"context"
	"fmt"

	"github.com/kinware/redux-first-router/internal/ir"
)

// WriteSnapshot appends snap to session. The session row is created on
// first write and keeps the basename and versions it started with.
//
// Uses ON CONFLICT DO NOTHING for idempotency: writing a (session, seq)
// pair that already exists is silently ignored, even if the content
// differs. Entries are serialized to canonical JSON per RFC 8785.
func (s *Store) WriteSnapshot(ctx context.Context, session string, snap ir.Snapshot) error {
	if session == "" {
		return fmt.Errorf("write snapshot: empty session id")
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	entriesJSON, err := marshalEntries(snap.Entries)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	hash, err := ir.EntriesHash(snap.Entries)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, basename, engine_version, schema_version, first_seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		session,
		snap.Basename,
		ir.EngineVersion,
		ir.SchemaVersion,
		snap.Seq,
	)
	if err != nil {
		return fmt.Errorf("write snapshot: session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(session_id, seq, kind, idx, length, url, entries, entries_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		session,
		snap.Seq,
		string(snap.Kind),
		snap.Index,
		snap.Len(),
		snap.Location().URL,
		entriesJSON,
		hash,
	)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write snapshot: commit: %w", err)
	}
	return nil
}

// marshalEntries converts entries to canonical JSON TEXT for storage.
func marshalEntries(entries []ir.Location) (string, error) {
	data, err := ir.MarshalEntries(entries)
	if err != nil {
		return "", fmt.Errorf("marshal entries: %w", err)
	}
	return string(data), nil
}
