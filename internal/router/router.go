// Package router classifies a request path against a deployment manifest.
//
// Matching is deterministic. Precedence, highest first: exact static path
// membership, exact dynamic route, parametrized dynamic route (`:seg`
// matches exactly one segment), wildcard dynamic route (trailing `*`
// matches one or more segments). Ties within a class are broken by route
// score, then longest static prefix, then declaration order.
package router

import (
	"strings"

	"github.com/origan-dev/gateway/internal/manifest"
)

// Match classes, in precedence order.
const (
	classExact = iota
	classParam
	classWildcard
)

// Segment scores. Static segments must outrank parameters, and parameters
// must outrank the wildcard tail, so that for a request to /api/users the
// routes /api/users > /api/users/:id > /api/*.
const (
	scoreStatic   = 3
	scoreParam    = 2
	scoreWildcard = 1
)

// Match returns the route entry serving path under m, or nil when nothing
// matches (the caller emits a 404).
func Match(path string, m *manifest.Manifest) *manifest.RouteEntry {
	path = NormalizePath(path)

	// Exact static membership wins over every dynamic route.
	if m.HasStaticPath(path) {
		return staticEntry(path)
	}

	if best := bestRoute(path, m); best != nil {
		return best
	}

	return spaFallback(path, m)
}

// NormalizePath ensures a single leading slash. No other segments are
// collapsed: deployments own the rest of their path space.
func NormalizePath(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}

type candidate struct {
	entry        *manifest.RouteEntry
	class        int
	score        int
	staticPrefix int
	order        int
}

func bestRoute(path string, m *manifest.Manifest) *manifest.RouteEntry {
	var best *candidate

	for i := range m.Routes {
		entry := &m.Routes[i]
		c, ok := matchPattern(entry.URLPattern, path)
		if !ok {
			continue
		}
		c.entry = entry
		c.order = i

		if best == nil || c.better(best) {
			best = &c
		}
	}

	if best == nil {
		return nil
	}
	return best.entry
}

// better reports whether c outranks other under the precedence rules.
func (c *candidate) better(other *candidate) bool {
	if c.class != other.class {
		return c.class < other.class
	}
	if c.score != other.score {
		return c.score > other.score
	}
	if c.staticPrefix != other.staticPrefix {
		return c.staticPrefix > other.staticPrefix
	}
	return c.order < other.order
}

// matchPattern matches path against pattern and computes its ranking.
// staticPrefix is the byte length of the pattern's leading literal portion.
func matchPattern(pattern, path string) (candidate, bool) {
	patSegs := splitPath(NormalizePath(pattern))
	pathSegs := splitPath(path)

	var c candidate
	sawDynamic := false

	for i, seg := range patSegs {
		if seg == "*" {
			// Trailing wildcard: consumes one or more remaining segments.
			if i != len(patSegs)-1 || len(pathSegs)-i < 1 {
				return candidate{}, false
			}
			c.class = classWildcard
			c.score += scoreWildcard
			return c, true
		}

		if i >= len(pathSegs) {
			return candidate{}, false
		}

		if strings.HasPrefix(seg, ":") {
			sawDynamic = true
			c.class = classParam
			c.score += scoreParam
			continue
		}

		if seg != pathSegs[i] {
			return candidate{}, false
		}
		c.score += scoreStatic
		if !sawDynamic {
			c.staticPrefix += len(seg) + 1 // account for the separator
		}
	}

	if len(pathSegs) != len(patSegs) {
		return candidate{}, false
	}
	return c, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// spaFallback realizes single-page-application semantics for manifests
// that ship static assets: literal path, then path + "/index.html", then
// the manifest-root index.html.
func spaFallback(path string, m *manifest.Manifest) *manifest.RouteEntry {
	if !m.HasStaticAssets() {
		return nil
	}

	if m.HasStaticPath(path) {
		return staticEntry(path)
	}

	dirIndex := strings.TrimSuffix(path, "/") + "/index.html"
	if m.HasStaticPath(dirIndex) {
		return staticEntry(dirIndex)
	}

	if m.HasStaticPath("/index.html") {
		return staticEntry("/index.html")
	}

	return nil
}

func staticEntry(path string) *manifest.RouteEntry {
	return &manifest.RouteEntry{
		URLPattern: path,
		TargetPath: path,
		Kind:       manifest.RouteStatic,
	}
}
