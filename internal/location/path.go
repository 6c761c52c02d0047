package location

import (
	"strings"

	"github.com/kinware/redux-first-router/internal/ir"
)

// Parts is a path split into its components.
type Parts struct {
	Pathname string
	Search   string
	Hash     string
}

// ParsePath splits "pathname?search#hash". Search and Hash keep their
// leading "?" and "#"; a bare "?" or "#" is dropped.
func ParsePath(path string) Parts {
	var p Parts

	if i := strings.IndexByte(path, '#'); i >= 0 {
		if i < len(path)-1 {
			p.Hash = path[i:]
		}
		path = path[:i]
	}

	if i := strings.IndexByte(path, '?'); i >= 0 {
		if i < len(path)-1 {
			p.Search = path[i:]
		}
		path = path[:i]
	}

	p.Pathname = path
	return p
}

// CreatePath renders a location back to "pathname?search#hash".
func CreatePath(loc ir.Location) string {
	return JoinParts(Parts{Pathname: loc.Pathname, Search: loc.Search, Hash: loc.Hash})
}

// JoinParts is the inverse of ParsePath.
func JoinParts(p Parts) string {
	path := p.Pathname
	if p.Search != "" && p.Search != "?" {
		if !strings.HasPrefix(p.Search, "?") {
			path += "?"
		}
		path += p.Search
	}
	if p.Hash != "" && p.Hash != "#" {
		if !strings.HasPrefix(p.Hash, "#") {
			path += "#"
		}
		path += p.Hash
	}
	return path
}

// StripSlashes removes leading and trailing "/" from a basename, so that
// "/app/" and "app" normalise to the same value. An all-slash input yields "".
func StripSlashes(s string) string {
	return strings.Trim(s, "/")
}

// NormalizeBasename returns the basename in the form used as an href
// prefix: "" or "/segment[/segment...]".
func NormalizeBasename(s string) string {
	s = StripSlashes(s)
	if s == "" {
		return ""
	}
	return "/" + s
}

// ResolvePathname resolves to against the pathname from, the way a browser
// resolves a relative link. An absolute to is cleaned and returned; an empty
// to returns from.
func ResolvePathname(to, from string) string {
	if to == "" {
		if from == "" {
			return "/"
		}
		return from
	}

	var segments []string
	if !strings.HasPrefix(to, "/") {
		base := strings.Split(from, "/")
		// drop the last segment of the base ("page" in "/dir/page")
		if len(base) > 0 {
			base = base[:len(base)-1]
		}
		segments = append(segments, base...)
	}
	segments = append(segments, strings.Split(to, "/")...)

	trailing := strings.HasSuffix(to, "/") || strings.HasSuffix(to, "/.") ||
		strings.HasSuffix(to, "/..") || to == "." || to == ".."

	var out []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}

	result := "/" + strings.Join(out, "/")
	if trailing && result != "/" {
		result += "/"
	}
	return result
}
