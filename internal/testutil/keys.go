// Package testutil holds deterministic collaborators for tests, scenario
// runs and golden traces.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialKeys generates "<prefix>-1", "<prefix>-2", ... and never runs
// out, unlike engine.FixedGenerator.
//
// The same scenario run with a fresh SequentialKeys produces byte-identical
// traces. Reset allows reuse across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialKeys struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialKeys creates a generator with the given prefix.
// If prefix is empty, keys are "key-1", "key-2", ...
func NewSequentialKeys(prefix string) *SequentialKeys {
	if prefix == "" {
		prefix = "key"
	}
	return &SequentialKeys{prefix: prefix}
}

// Generate returns the next key.
//
// Implements engine.KeyGenerator.
func (g *SequentialKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Issued returns how many keys have been generated since the last Reset.
func (g *SequentialKeys) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence. The next Generate returns "<prefix>-1".
func (g *SequentialKeys) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
