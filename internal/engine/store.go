package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/kinware/redux-first-router/internal/ir"
	"github.com/kinware/redux-first-router/internal/location"
)

// SaveFunc persists the store after every applied transition. It receives
// the store with its live state already updated.
type SaveFunc func(s *Store) error

// Config is the initial state of a Store.
type Config struct {
	// Index is the position of the current entry in Entries.
	Index int

	// Entries is the initial stack. It must not be empty.
	Entries []ir.Location

	// Basename prefixes every href. Leading and trailing slashes are
	// stripped.
	Basename string

	// Save is called after every applied transition. Optional.
	Save SaveFunc
}

// Option configures the collaborators of a Store.
type Option func(*Store)

// WithDriver sets the host storage commits write to.
// Default: NopDriver.
func WithDriver(d Driver) Option {
	return func(s *Store) {
		s.driver = d
	}
}

// WithKeys sets the generator for keys of pushed and redirected entries.
// Default: UUIDv7Generator.
func WithKeys(g KeyGenerator) Option {
	return func(s *Store) {
		s.keys = g
	}
}

// WithLocations sets the factory that builds candidate entries.
// Default: a Factory with location.DefaultCacheSize.
func WithLocations(f *location.Factory) Option {
	return func(s *Store) {
		s.locations = f
	}
}

// WithNotifier replaces the default Channel.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithClock sets the clock that stamps applied snapshots. Use NewClockAt
// when resuming a persisted session.
func WithClock(c *Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Store owns a navigation stack and the index of the current entry.
//
// Every transition method computes a proposed snapshot, hands a
// *Transition to the notifier and returns it. Nothing changes until a
// listener commits; the commit writes to the Driver first and only then
// swaps the live state in one step and calls Save.
//
// Thread-safety: accessors and transition methods are safe for concurrent
// use, and a reader never sees a partially applied transition. Commits are
// not serialized against each other: a Transition proposed before another
// one committed still applies its own snapshot, so callers must settle one
// transition before requesting the next.
//
// INVARIANTS:
//   - 0 <= Index() < Len()
//   - Len() == len(Entries())
//   - Seq() increases by one per applied transition
type Store struct {
	mu       sync.RWMutex
	index    int
	entries  []ir.Location
	basename string
	kind     ir.Kind
	seq      int64

	save      SaveFunc
	driver    Driver
	keys      KeyGenerator
	locations *location.Factory
	notifier  Notifier
	clock     *Clock
	logger    *slog.Logger
}

// New creates a Store from cfg. Kind starts as load, which is never
// broadcast to listeners.
func New(cfg Config, opts ...Option) (*Store, error) {
	initial := ir.Snapshot{Index: cfg.Index, Entries: cfg.Entries, Kind: ir.KindLoad}
	if err := initial.Validate(); err != nil {
		return nil, &NavigationError{
			Code:    ErrCodeInvalidState,
			Message: err.Error(),
			Index:   cfg.Index,
			Length:  len(cfg.Entries),
		}
	}

	s := &Store{
		index:    cfg.Index,
		entries:  ir.CloneEntries(cfg.Entries),
		basename: location.StripSlashes(cfg.Basename),
		kind:     ir.KindLoad,
		save:     cfg.Save,
		driver:   NopDriver{},
		keys:     UUIDv7Generator{},
		notifier: NewChannel(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.locations == nil {
		f, err := location.NewFactory(location.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		s.locations = f
	}
	if s.clock == nil {
		s.clock = NewClock()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.seq = s.clock.Current()

	return s, nil
}

// Index returns the position of the current entry.
func (s *Store) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Entries returns a deep copy of the stack.
func (s *Store) Entries() []ir.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ir.CloneEntries(s.entries)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Location returns the current entry.
func (s *Store) Location() ir.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[s.index].Clone()
}

// Basename returns the slash-stripped basename.
func (s *Store) Basename() string {
	return s.basename
}

// Kind returns the kind of the last applied transition.
func (s *Store) Kind() ir.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kind
}

// Seq returns the clock value the last applied transition was stamped with.
func (s *Store) Seq() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Snapshot returns a deep copy of the live state. Writes to it, including
// to entry state, never reach the store.
func (s *Store) Snapshot() ir.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() ir.Snapshot {
	return ir.Snapshot{
		Seq:      s.seq,
		Index:    s.index,
		Entries:  ir.CloneEntries(s.entries),
		Basename: s.basename,
		Kind:     s.kind,
	}
}

// Href returns the address of loc under the store's basename. A non-empty
// basename is written with a leading slash, so basename "app" and path
// "/a" give "/app/a".
func (s *Store) Href(loc ir.Location) string {
	return location.NormalizeBasename(s.basename) + location.CreatePath(loc)
}

// CanJump reports whether Jump(n) stays inside the stack.
func (s *Store) CanJump(n int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target := s.index + n
	return target >= 0 && target < len(s.entries)
}

// Listen registers l for every future transition. The returned function
// unregisters it.
func (s *Store) Listen(l Listener) (unsubscribe func()) {
	return s.notifier.Add(l)
}

// Push proposes a new entry for path after the current one.
//
// If path resolves to the URL of the entry directly behind or ahead of the
// current one, the push becomes Jump(-1, state) or Jump(+1, state).
// Otherwise every entry after the current one is dropped on commit.
// A nil state is treated as empty.
func (s *Store) Push(ctx context.Context, path string, state ir.Object) (*Transition, error) {
	state = state.Clone()
	key := s.keys.Generate()
	current := s.Snapshot()
	prev := current.Location()
	loc := s.locations.Create(path, state, key, &prev)

	if i := current.Index - 1; i >= 0 && current.Entries[i].SameURL(loc) {
		s.logger.Debug("push coalesced", "url", loc.URL, "kind", ir.KindBack)
		return s.Jump(ctx, -1, state)
	}
	if i := current.Index + 1; i < current.Len() && current.Entries[i].SameURL(loc) {
		s.logger.Debug("push coalesced", "url", loc.URL, "kind", ir.KindNext)
		return s.Jump(ctx, 1, state)
	}

	index := current.Index + 1
	proposed := ir.Snapshot{
		Index:    index,
		Entries:  pushAt(current.Entries, index, loc),
		Basename: current.Basename,
		Kind:     ir.KindPush,
	}

	t := newTransition(current, proposed, 0, func(ctx context.Context) error {
		if err := s.driver.PushState(ctx, loc, s.Href(loc)); err != nil {
			return fmt.Errorf("push %s: %w", loc.URL, err)
		}
		return s.apply(proposed)
	})
	s.notify(ctx, t)
	return t, nil
}

// RedirectOption configures a single Redirect.
type RedirectOption func(*redirectOptions)

type redirectOptions struct {
	merge bool
}

// WithoutMerge makes Redirect drop the current entry's state instead of
// merging it under the new state.
func WithoutMerge() RedirectOption {
	return func(o *redirectOptions) {
		o.merge = false
	}
}

// WithMerge sets whether Redirect merges the current entry's state.
func WithMerge(merge bool) RedirectOption {
	return func(o *redirectOptions) {
		o.merge = merge
	}
}

// Redirect proposes replacing the current entry with one for path. Index
// and length are unchanged.
//
// By default the new entry's state is the current entry's state overlaid
// with state; WithoutMerge uses state alone.
func (s *Store) Redirect(ctx context.Context, path string, state ir.Object, opts ...RedirectOption) (*Transition, error) {
	o := redirectOptions{merge: true}
	for _, opt := range opts {
		opt(&o)
	}

	key := s.keys.Generate()
	current := s.Snapshot()
	prev := current.Location()

	var base ir.Object
	if o.merge {
		base = prev.State
	}
	loc := s.locations.Create(path, base.Merge(state.Clone()), key, &prev)

	proposed := ir.Snapshot{
		Index:    current.Index,
		Entries:  replaceAt(current.Entries, current.Index, loc),
		Basename: current.Basename,
		Kind:     ir.KindRedirect,
	}

	t := newTransition(current, proposed, 0, func(ctx context.Context) error {
		if err := s.driver.ReplaceState(ctx, loc, s.Href(loc)); err != nil {
			return fmt.Errorf("replace %s: %w", loc.URL, err)
		}
		return s.apply(proposed)
	})
	s.notify(ctx, t)
	return t, nil
}

// Jump proposes moving n slots through the stack. The target entry keeps
// its URL and key; its state is shallow-merged with state.
//
// Kind is back for n == -1, next for n == 1 and jump otherwise. If the
// target is outside the stack Jump returns a range error and notifies
// nobody.
//
// The commit moves the host cursor with Driver.Go and applies the snapshot
// only after Go has returned successfully.
func (s *Store) Jump(ctx context.Context, n int, state ir.Object) (*Transition, error) {
	current := s.Snapshot()
	index := current.Index + n
	if index < 0 || index >= current.Len() {
		return nil, NewRangeError(current.Index, n, current.Len())
	}

	loc := current.Entries[index].WithState(state.Clone())
	proposed := ir.Snapshot{
		Index:    index,
		Entries:  replaceAt(current.Entries, index, loc),
		Basename: current.Basename,
		Kind:     ir.JumpKind(n),
	}

	t := newTransition(current, proposed, n, func(ctx context.Context) error {
		if err := s.driver.Go(ctx, n, loc); err != nil {
			return fmt.Errorf("go %d: %w", n, err)
		}
		return s.apply(proposed)
	})
	s.notify(ctx, t)
	return t, nil
}

// Back is Jump(-1, state).
func (s *Store) Back(ctx context.Context, state ir.Object) (*Transition, error) {
	return s.Jump(ctx, -1, state)
}

// Next is Jump(1, state).
func (s *Store) Next(ctx context.Context, state ir.Object) (*Transition, error) {
	return s.Jump(ctx, 1, state)
}

func (s *Store) notify(ctx context.Context, t *Transition) {
	s.logger.Debug("transition proposed",
		"kind", t.Proposed.Kind,
		"from", t.Current.Index,
		"to", t.Proposed.Index,
		"url", t.Proposed.Location().URL,
	)
	s.notifier.Notify(ctx, t)
}

// apply swaps the live state for next and then calls Save outside the lock.
// A Save error is returned but the swap stays in place.
func (s *Store) apply(next ir.Snapshot) error {
	s.mu.Lock()
	s.index = next.Index
	s.entries = ir.CloneEntries(next.Entries)
	s.kind = next.Kind
	s.seq = s.clock.Next()
	seq := s.seq
	s.mu.Unlock()

	s.logger.Debug("transition applied",
		"seq", seq,
		"kind", next.Kind,
		"index", next.Index,
		"length", len(next.Entries),
	)

	if s.save == nil {
		return nil
	}
	if err := s.save(s); err != nil {
		s.logger.Error("save failed", "seq", seq, "error", err)
		return NewSaveError(seq, err)
	}
	return nil
}
