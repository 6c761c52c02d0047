package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinware/redux-first-router/internal/ir"
)

func TestFactoryCreate(t *testing.T) {
	f := MustNewFactory(0)
	state := ir.Object{"scroll": ir.Int(10)}

	loc := f.Create("/posts?page=2#c3", state, "k1", nil)

	assert.Equal(t, "/posts?page=2#c3", loc.URL)
	assert.Equal(t, "/posts", loc.Pathname)
	assert.Equal(t, "?page=2", loc.Search)
	assert.Equal(t, "#c3", loc.Hash)
	assert.Equal(t, "k1", loc.Key)
	assert.Equal(t, state, loc.State)
}

func TestFactoryCreateKeepsStateAsGiven(t *testing.T) {
	f := MustNewFactory(0)

	loc := f.Create("/a", nil, "k", nil)
	assert.Nil(t, loc.State)
}

func TestFactoryCreateRelativeToPrevious(t *testing.T) {
	f := MustNewFactory(0)
	prev := f.Create("/docs/intro", nil, "k0", nil)

	sibling := f.Create("setup", nil, "k1", &prev)
	assert.Equal(t, "/docs/setup", sibling.URL)

	queryOnly := f.Create("?lang=go", nil, "k2", &prev)
	assert.Equal(t, "/docs/intro?lang=go", queryOnly.URL)

	noPrev := f.Create("setup", nil, "k3", nil)
	assert.Equal(t, "/setup", noPrev.URL)
}

func TestFactoryCachesParsedPaths(t *testing.T) {
	f := MustNewFactory(2)

	f.Create("/a", nil, "k1", nil)
	f.Create("/a", nil, "k2", nil)
	assert.Equal(t, 1, f.Cached())

	f.Create("/b", nil, "k3", nil)
	f.Create("/c", nil, "k4", nil)
	assert.Equal(t, 2, f.Cached(), "cache is bounded")
}

func TestFactoryCacheDoesNotLeakResolution(t *testing.T) {
	f := MustNewFactory(0)
	a := f.Create("/a/page", nil, "k0", nil)
	b := f.Create("/b/page", nil, "k1", nil)

	// same relative input, different bases
	fromA := f.Create("x", nil, "k2", &a)
	fromB := f.Create("x", nil, "k3", &b)

	assert.Equal(t, "/a/x", fromA.URL)
	assert.Equal(t, "/b/x", fromB.URL)
}

func TestNewFactoryDefaultSize(t *testing.T) {
	f, err := NewFactory(-1)
	require.NoError(t, err)
	require.NotNil(t, f)
}
