package ir

import "fmt"

// Location is one recorded stack position.
// Locations are immutable by convention: transitions never edit a Location
// that is already part of a snapshot, they build a new one.
type Location struct {
	URL      string `json:"url"`      // pathname + search + hash, used for equality
	Pathname string `json:"pathname"` // always starts with "/"
	Search   string `json:"search"`   // "" or "?..."
	Hash     string `json:"hash"`     // "" or "#..."
	State    Object `json:"state"`    // caller supplied data
	Key      string `json:"key"`      // distinguishes otherwise identical entries
}

// WithState returns a copy of l whose state is l.State shallow-merged with
// state (keys in state win).
func (l Location) WithState(state Object) Location {
	l.State = l.State.Merge(state)
	return l
}

// Clone returns a copy of l that shares no state with it. A nil State
// stays nil.
func (l Location) Clone() Location {
	if l.State != nil {
		l.State = l.State.Clone()
	}
	return l
}

// CloneEntries returns a deep copy of entries.
func CloneEntries(entries []Location) []Location {
	if entries == nil {
		return nil
	}
	out := make([]Location, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

// SameURL reports whether two locations address the same URL.
func (l Location) SameURL(other Location) bool {
	return l.URL == other.URL
}

// Kind classifies a transition.
type Kind string

const (
	// KindLoad is assigned at construction and never broadcast.
	KindLoad Kind = "load"
	// KindPush appends a fresh entry after the current index.
	KindPush Kind = "push"
	// KindRedirect replaces the entry at the current index.
	KindRedirect Kind = "redirect"
	// KindBack moves one entry backward.
	KindBack Kind = "back"
	// KindNext moves one entry forward.
	KindNext Kind = "next"
	// KindJump moves by an arbitrary signed delta.
	KindJump Kind = "jump"
)

// ValidKinds lists every kind a snapshot may carry.
var ValidKinds = map[Kind]bool{
	KindLoad:     true,
	KindPush:     true,
	KindRedirect: true,
	KindBack:     true,
	KindNext:     true,
	KindJump:     true,
}

// JumpKind returns the kind a positional jump of n slots is classified as.
func JumpKind(n int) Kind {
	switch n {
	case -1:
		return KindBack
	case 1:
		return KindNext
	default:
		return KindJump
	}
}

// Snapshot is an immutable view of a navigation store.
//
// INVARIANTS (for snapshots produced by the engine):
//   - 0 <= Index < len(Entries)
//   - Len() == len(Entries)
//   - Seq increases by exactly one per committed transition
type Snapshot struct {
	Seq      int64      `json:"seq"`
	Index    int        `json:"index"`
	Entries  []Location `json:"entries"`
	Basename string     `json:"basename"`
	Kind     Kind       `json:"kind"`
}

// Len returns the number of entries.
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Location returns the entry at Index, or the zero Location if Index is out
// of range.
func (s Snapshot) Location() Location {
	if s.Index < 0 || s.Index >= len(s.Entries) {
		return Location{}
	}
	return s.Entries[s.Index]
}

// Clone returns a copy of s whose entries share no memory with s.
func (s Snapshot) Clone() Snapshot {
	s.Entries = CloneEntries(s.Entries)
	return s
}

// Validate checks the index/entries invariant.
func (s Snapshot) Validate() error {
	if len(s.Entries) == 0 {
		return fmt.Errorf("snapshot has no entries")
	}
	if s.Index < 0 || s.Index >= len(s.Entries) {
		return fmt.Errorf("index %d out of range [0, %d)", s.Index, len(s.Entries))
	}
	if !ValidKinds[s.Kind] {
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	return nil
}

// URLs returns the URL of every entry in order.
func (s Snapshot) URLs() []string {
	urls := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		urls[i] = e.URL
	}
	return urls
}
