package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kinware/redux-first-router/internal/ir"
)

// Session describes one persisted navigation session.
type Session struct {
	ID            string `json:"id"`
	Basename      string `json:"basename"`
	EngineVersion string `json:"engine_version"`
	SchemaVersion string `json:"schema_version"`
	FirstSeq      int64  `json:"first_seq"`
	LastSeq       int64  `json:"last_seq"`
	Snapshots     int    `json:"snapshots"`
}

const snapshotColumns = `s.seq, s.kind, s.idx, s.length, s.entries, s.entries_hash, ss.basename`

// ReadSnapshot returns the snapshot of session at seq.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSnapshot(ctx context.Context, session string, seq int64) (ir.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots s
		JOIN sessions ss ON ss.id = s.session_id
		WHERE s.session_id = ? AND s.seq = ?
	`, session, seq)
	return scanSnapshot(row)
}

// ReadLatest returns the snapshot with the highest seq in session.
// Returns sql.ErrNoRows if the session has no snapshots.
func (s *Store) ReadLatest(ctx context.Context, session string) (ir.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots s
		JOIN sessions ss ON ss.id = s.session_id
		WHERE s.session_id = ?
		ORDER BY s.seq DESC
		LIMIT 1
	`, session)
	return scanSnapshot(row)
}

// ReadSession returns every snapshot of session ordered by seq.
//
// Returns an empty slice (not nil) if the session has no snapshots.
func (s *Store) ReadSession(ctx context.Context, session string) ([]ir.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots s
		JOIN sessions ss ON ss.id = s.session_id
		WHERE s.session_id = ?
		ORDER BY s.seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []ir.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// Sessions returns every session ordered by id.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ss.id, ss.basename, ss.engine_version, ss.schema_version, ss.first_seq,
		       COALESCE(MAX(s.seq), ss.first_seq), COUNT(s.seq)
		FROM sessions ss
		LEFT JOIN snapshots s ON s.session_id = ss.id
		GROUP BY ss.id
		ORDER BY ss.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.ID,
			&sess.Basename,
			&sess.EngineVersion,
			&sess.SchemaVersion,
			&sess.FirstSeq,
			&sess.LastSeq,
			&sess.Snapshots,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// StackVisit is a snapshot whose whole stack hashed to a given value.
type StackVisit struct {
	Session string `json:"session"`
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	Index   int    `json:"index"`
	URL     string `json:"url"`
}

// SessionsReaching returns every snapshot whose entries hash is hash,
// ordered by session then seq. Served by idx_snapshots_entries_hash.
// The hash covers entry keys, so only sessions with the same key
// sequence can share a stack.
func (s *Store) SessionsReaching(ctx context.Context, hash string) ([]StackVisit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, kind, idx, url
		FROM snapshots
		WHERE entries_hash = ?
		ORDER BY session_id COLLATE BINARY ASC, seq ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("sessions reaching %s: %w", hash, err)
	}
	defer rows.Close()

	visits := []StackVisit{}
	for rows.Next() {
		var v StackVisit
		if err := rows.Scan(&v.Session, &v.Seq, &v.Kind, &v.Index, &v.URL); err != nil {
			return nil, fmt.Errorf("scan stack visit: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stack visits: %w", err)
	}
	return visits, nil
}

// LastSeq returns the highest seq written for session, or 0 if none.
// Used to resume the logical clock of a restored store.
func (s *Store) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM snapshots WHERE session_id = ?
	`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSnapshot reads one snapshot row and checks its entries hash.
// sql.ErrNoRows is returned unwrapped.
func scanSnapshot(row rowScanner) (ir.Snapshot, error) {
	var (
		snap        ir.Snapshot
		kind        string
		length      int
		entriesJSON string
		storedHash  string
	)
	err := row.Scan(&snap.Seq, &kind, &snap.Index, &length, &entriesJSON, &storedHash, &snap.Basename)
	if err == sql.ErrNoRows {
		return ir.Snapshot{}, err
	}
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	snap.Kind = ir.Kind(kind)

	snap.Entries, err = unmarshalEntries(entriesJSON)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshot seq %d: %w", snap.Seq, err)
	}
	if len(snap.Entries) != length {
		return ir.Snapshot{}, fmt.Errorf("snapshot seq %d: length %d, stored %d entries", snap.Seq, length, len(snap.Entries))
	}

	hash, err := ir.EntriesHash(snap.Entries)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshot seq %d: %w", snap.Seq, err)
	}
	if hash != storedHash {
		return ir.Snapshot{}, fmt.Errorf("snapshot seq %d: entries hash mismatch", snap.Seq)
	}
	return snap, nil
}

// unmarshalEntries parses canonical JSON TEXT to entries.
// State objects go through ir.Object.UnmarshalJSON, which keeps large
// integers exact and rejects floats.
func unmarshalEntries(data string) ([]ir.Location, error) {
	var entries []ir.Location
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal entries: %w", err)
	}
	return entries, nil
}
