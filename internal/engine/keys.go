package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// KeyGenerator produces the keys that tell otherwise identical entries
// apart. Keys must be unique for the lifetime of the process.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 keys.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined keys, for tests and golden traces.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewFixedGenerator creates a generator that returns keys in order.
//
//	gen := NewFixedGenerator("k1", "k2")
//	gen.Generate() // "k1"
//	gen.Generate() // "k2"
//	gen.Generate() // panic: all keys exhausted
func NewFixedGenerator(keys ...string) *FixedGenerator {
	return &FixedGenerator{keys: keys}
}

// Generate returns the next predetermined key.
// Panics when all keys have been consumed, to catch tests that navigate more
// often than they expect.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.keys) {
		panic(fmt.Sprintf("FixedGenerator: all %d keys exhausted", len(g.keys)))
	}
	key := g.keys[g.idx]
	g.idx++
	return key
}
