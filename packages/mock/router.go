package mock

import (
	"regexp"
	"strings"
)

var paramPattern = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// Route maps a method and path pattern to a canned reply
type Route struct {
	Method      string
	PathPattern string
	pathRegex   *regexp.Regexp
	Reply       *Reply
}

// Reply is the canned response a route serves. Body may reference path
// parameters as {{name}}.
type Reply struct {
	StatusCode  int
	ContentType string
	Headers     map[string]string
	Body        string
}

// Router matches incoming requests to routes in registration order
type Router struct {
	routes []*Route
}

func NewRouter() *Router {
	return &Router{}
}

// Add registers a route. A pattern segment written {{name}} matches any single
// path segment and is captured as name.
func (r *Router) Add(method, pattern string, reply *Reply) *Route {
	pattern = normalizePath(pattern)
	route := &Route{
		Method:      strings.ToUpper(method),
		PathPattern: pattern,
		pathRegex:   compilePattern(pattern),
		Reply:       reply,
	}
	r.routes = append(r.routes, route)
	return route
}

// Match finds the first route for method and path along with its captured
// parameters. A nil route means nothing matched.
func (r *Router) Match(method, path string) (*Route, map[string]string) {
	path = normalizePath(path)

	for _, route := range r.routes {
		if !strings.EqualFold(route.Method, method) {
			continue
		}
		matches := route.pathRegex.FindStringSubmatch(path)
		if matches == nil {
			continue
		}
		params := make(map[string]string)
		for i, name := range route.pathRegex.SubexpNames() {
			if i > 0 && name != "" {
				params[name] = matches[i]
			}
		}
		return route, params
	}

	return nil, nil
}

// Routes returns the registered routes
func (r *Router) Routes() []*Route {
	return r.routes
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

func compilePattern(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("^")
	last := 0
	for _, loc := range paramPattern.FindAllStringSubmatchIndex(pattern, -1) {
		sb.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))
		sb.WriteString("(?P<" + pattern[loc[2]:loc[3]] + ">[^/]+)")
		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(pattern[last:]))
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}
