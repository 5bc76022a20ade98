// Package pages maps request paths to generated HTML. A Router is a
// server.PageProvider: a path with no matching route yields no page and
// the client gets redirected.
package pages

import (
	"strings"
)

// PageFunc builds the body of a page. params holds the values bound by
// ":name" segments of the route pattern.
type PageFunc func(params map[string]string, seq uint64) []byte

// Route is a registered pattern and its page.
type Route struct {
	Pattern string
	Page    PageFunc
	Params  []string // Parameter names (e.g., ["seq"])
}

// Router is consulted from the event loop only, so it carries no lock.
// Register every route before serving.
type Router struct {
	routes []*Route
}

func New() *Router {
	return &Router{
		routes: make([]*Route, 0),
	}
}

// Handle registers a page under pattern. Earlier routes win.
func (r *Router) Handle(pattern string, page PageFunc) {
	r.routes = append(r.routes, &Route{
		Pattern: pattern,
		Page:    page,
		Params:  extractParams(pattern),
	})
}

// Match finds the first route matching path, ignoring any query string.
func (r *Router) Match(path string) (*Route, map[string]string) {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	for _, route := range r.routes {
		if params := matchPath(route.Pattern, path); params != nil {
			return route, params
		}
	}
	return nil, nil
}

// BuildPage renders the page for path, or returns nil when nothing
// matches.
func (r *Router) BuildPage(path string, seq uint64) []byte {
	route, params := r.Match(path)
	if route == nil {
		return nil
	}
	return route.Page(params, seq)
}

// Routes returns the registered patterns in match order.
func (r *Router) Routes() []string {
	out := make([]string, len(r.routes))
	for i, route := range r.routes {
		out[i] = route.Pattern
	}
	return out
}

// extractParams lists the parameter names of a pattern.
// Example: "/conn/:seq" -> ["seq"]
func extractParams(pattern string) []string {
	params := make([]string, 0)
	for _, part := range strings.Split(pattern, "/") {
		if strings.HasPrefix(part, ":") {
			params = append(params, part[1:])
		}
	}
	return params
}

// matchPath returns the bound parameters, or nil when path does not fit
// pattern. Parameters never match an empty segment.
func matchPath(pattern, path string) map[string]string {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	if len(patternParts) != len(pathParts) {
		return nil
	}

	params := make(map[string]string)
	for i, patternPart := range patternParts {
		pathPart := pathParts[i]
		if strings.HasPrefix(patternPart, ":") {
			if pathPart == "" {
				return nil
			}
			params[patternPart[1:]] = pathPart
		} else if patternPart != pathPart {
			return nil
		}
	}
	return params
}
