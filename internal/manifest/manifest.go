package manifest

import "strings"

// RouteKind classifies how a matched route is dispatched.
type RouteKind string

const (
	// RouteStatic serves the target path from the deployment's asset storage.
	RouteStatic RouteKind = "static"

	// RouteDynamic forwards the request to the function execution runtime.
	RouteDynamic RouteKind = "dynamic"

	// RouteWildcard is a dynamic route whose pattern ends with a trailing
	// wildcard segment. It matches one or more trailing path segments.
	RouteWildcard RouteKind = "wildcard"
)

// RouteEntry maps a URL pattern to a deployment target.
// Patterns use `:name` for single-segment parameters and a trailing `*`
// to match the remainder of the path.
type RouteEntry struct {
	URLPattern string    `json:"urlPattern"`
	TargetPath string    `json:"targetPath"`
	Kind       RouteKind `json:"kind"`
}

// Manifest describes the routes and static assets of one deployment.
// It is produced by the build pipeline and consumed read-only by the gateway;
// instances must not be mutated after decoding.
type Manifest struct {
	Version     int          `json:"version"`
	StaticPaths []string     `json:"staticPaths"`
	Routes      []RouteEntry `json:"routes"`
}

// HasStaticPath reports whether the manifest declares the given path as a
// static asset. Both sides are compared with a single leading slash.
func (m *Manifest) HasStaticPath(path string) bool {
	if m == nil {
		return false
	}
	path = normalize(path)
	for _, p := range m.StaticPaths {
		if normalize(p) == path {
			return true
		}
	}
	return false
}

// HasStaticAssets reports whether the deployment ships any static files,
// which enables the router's SPA fallback.
func (m *Manifest) HasStaticAssets() bool {
	return m != nil && len(m.StaticPaths) > 0
}

func normalize(p string) string {
	return "/" + strings.TrimLeft(p, "/")
}
