package location

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kinware/redux-first-router/internal/ir"
)

// DefaultCacheSize bounds the number of parsed paths a Factory memoises.
const DefaultCacheSize = 256

// Factory creates locations. Parsed paths are memoised in a bounded LRU
// because applications push the same handful of paths over and over.
//
// Thread-safety: Factory is safe for concurrent use (the LRU is locked).
type Factory struct {
	parsed *lru.Cache[string, Parts]
}

// NewFactory returns a Factory whose parse cache holds up to size paths.
// A size <= 0 uses DefaultCacheSize.
func NewFactory(size int) (*Factory, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, Parts](size)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	return &Factory{parsed: cache}, nil
}

// MustNewFactory is like NewFactory but panics on error.
func MustNewFactory(size int) *Factory {
	f, err := NewFactory(size)
	if err != nil {
		panic(err)
	}
	return f
}

// Create builds a Location for path.
//
// A relative pathname is resolved against prev.Pathname; an empty pathname
// ("?q=1", "#top") keeps prev's pathname. Without prev, paths resolve
// against "/". state is carried exactly as given.
func (f *Factory) Create(path string, state ir.Object, key string, prev *ir.Location) ir.Location {
	parts := f.parse(path)

	from := "/"
	if prev != nil && prev.Pathname != "" {
		from = prev.Pathname
	}
	parts.Pathname = ResolvePathname(parts.Pathname, from)

	return ir.Location{
		URL:      JoinParts(parts),
		Pathname: parts.Pathname,
		Search:   parts.Search,
		Hash:     parts.Hash,
		State:    state,
		Key:      key,
	}
}

// Cached returns the number of memoised paths.
func (f *Factory) Cached() int {
	return f.parsed.Len()
}

func (f *Factory) parse(path string) Parts {
	if p, ok := f.parsed.Get(path); ok {
		return p
	}
	p := ParsePath(path)
	f.parsed.Add(path, p)
	return p
}
