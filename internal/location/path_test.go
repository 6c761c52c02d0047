package location

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kinware/redux-first-router/internal/ir"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want Parts
	}{
		{"/a", Parts{Pathname: "/a"}},
		{"/a?q=1", Parts{Pathname: "/a", Search: "?q=1"}},
		{"/a#top", Parts{Pathname: "/a", Hash: "#top"}},
		{"/a?q=1#top", Parts{Pathname: "/a", Search: "?q=1", Hash: "#top"}},
		{"/a#top?not-search", Parts{Pathname: "/a", Hash: "#top?not-search"}},
		{"/a?#", Parts{Pathname: "/a"}},
		{"?q=1", Parts{Search: "?q=1"}},
		{"", Parts{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePath(tt.in))
		})
	}
}

func TestCreatePathRoundTrip(t *testing.T) {
	for _, path := range []string{"/a", "/a?q=1", "/a#h", "/a/b?x=1&y=2#frag"} {
		p := ParsePath(path)
		loc := ir.Location{Pathname: p.Pathname, Search: p.Search, Hash: p.Hash}
		assert.Equal(t, path, CreatePath(loc))
	}
}

func TestJoinPartsAddsMissingPrefixes(t *testing.T) {
	assert.Equal(t, "/a?q=1#h", JoinParts(Parts{Pathname: "/a", Search: "q=1", Hash: "h"}))
	assert.Equal(t, "/a", JoinParts(Parts{Pathname: "/a", Search: "?", Hash: "#"}))
}

func TestStripSlashes(t *testing.T) {
	assert.Equal(t, "app", StripSlashes("/app/"))
	assert.Equal(t, "app/v2", StripSlashes("//app/v2//"))
	assert.Equal(t, "", StripSlashes("/"))
	assert.Equal(t, "", StripSlashes(""))
}

func TestNormalizeBasename(t *testing.T) {
	assert.Equal(t, "/app", NormalizeBasename("app/"))
	assert.Equal(t, "/app", NormalizeBasename("/app"))
	assert.Equal(t, "", NormalizeBasename("/"))
}

func TestResolvePathname(t *testing.T) {
	tests := []struct {
		to, from, want string
	}{
		{"/a", "/x/y", "/a"},
		{"/", "/x", "/"},
		{"b", "/dir/page", "/dir/b"},
		{"b", "/", "/b"},
		{"c", "/a/", "/a/c"},
		{"../x", "/a/b/c", "/a/x"},
		{"./x", "/a/b", "/a/x"},
		{"../../../x", "/a/b", "/x"},
		{"/a/", "/", "/a/"},
		{"..", "/a/b/c", "/a/"},
		{"", "/keep", "/keep"},
		{"", "", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.to+" from "+tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePathname(tt.to, tt.from))
		})
	}
}
