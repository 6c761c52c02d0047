package engine

import (
	"slices"

	"github.com/kinware/redux-first-router/internal/ir"
)

// The helpers below never modify their input: each returns a new slice, so
// a proposed snapshot can never alias the live entries.

// truncateFrom returns entries[:index], discarding every entry at or after
// index. An index past the end returns a copy of all entries.
func truncateFrom(entries []ir.Location, index int) []ir.Location {
	index = max(0, min(index, len(entries)))
	return slices.Clone(entries[:index])
}

// replaceAt returns a copy of entries with the entry at index replaced.
func replaceAt(entries []ir.Location, index int, loc ir.Location) []ir.Location {
	out := slices.Clone(entries)
	out[index] = loc
	return out
}

// appendEntry returns a copy of entries with loc appended.
func appendEntry(entries []ir.Location, loc ir.Location) []ir.Location {
	out := make([]ir.Location, len(entries), len(entries)+1)
	copy(out, entries)
	return append(out, loc)
}

// pushAt returns the stack that results from pushing loc at index: every
// entry from index onward is dropped and loc takes its place.
func pushAt(entries []ir.Location, index int, loc ir.Location) []ir.Location {
	return appendEntry(truncateFrom(entries, index), loc)
}
