package store

import (
	"context"
	"fmt"

	"github.com/kinware/redux-first-router/internal/engine"
)

// SaveFunc binds the store to an engine.Store's save callback. Every
// applied transition is written to session.
func (s *Store) SaveFunc(ctx context.Context, session string) engine.SaveFunc {
	return func(es *engine.Store) error {
		return s.WriteSnapshot(ctx, session, es.Snapshot())
	}
}

// RestorePoint holds what a new engine.Store needs to continue a session.
type RestorePoint struct {
	Config engine.Config
	Clock  *engine.Clock
}

// Restore reads the latest snapshot of session and returns the
// configuration and clock to resume it with. The returned Config saves
// back into the same session.
//
// Returns an error wrapping sql.ErrNoRows if the session does not exist.
func (s *Store) Restore(ctx context.Context, session string) (RestorePoint, error) {
	snap, err := s.ReadLatest(ctx, session)
	if err != nil {
		return RestorePoint{}, fmt.Errorf("restore session %q: %w", session, err)
	}

	return RestorePoint{
		Config: engine.Config{
			Index:    snap.Index,
			Entries:  snap.Entries,
			Basename: snap.Basename,
			Save:     s.SaveFunc(ctx, session),
		},
		Clock: engine.NewClockAt(snap.Seq),
	}, nil
}
