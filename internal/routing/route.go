package routing

import (
	"net/http"
	"strings"
)

// MethodAny matches every request method.
const MethodAny = "*"

// Route is one entry of the handler list.
type Route struct {
	// Method is the request method to match. Empty or MethodAny matches all
	// methods; GET also matches HEAD.
	Method string

	// Pattern is the path pattern.
	Pattern string

	// Handler serves matching requests.
	Handler http.Handler

	// When, if set, is consulted after method and path matched. A false
	// result lets the request fall through to the next route.
	When func(*http.Request) bool

	// Source names what registered the route (a file path or "func").
	Source string

	pattern *pattern
}

// NewRoute compiles a route.
func NewRoute(method, pat string, h http.Handler) (Route, error) {
	compiled, err := parsePattern(pat)
	if err != nil {
		return Route{}, err
	}
	return Route{
		Method:  strings.ToUpper(method),
		Pattern: pat,
		Handler: h,
		pattern: compiled,
	}, nil
}

// MustRoute is like NewRoute but panics on an invalid pattern.
func MustRoute(method, pat string, h http.Handler) Route {
	r, err := NewRoute(method, pat, h)
	if err != nil {
		panic(err)
	}
	return r
}

func (rt *Route) matchMethod(method string) bool {
	switch rt.Method {
	case "", MethodAny, method:
		return true
	case http.MethodGet:
		return method == http.MethodHead
	default:
		return false
	}
}

// match reports whether the route serves r and returns its path values.
func (rt *Route) match(r *http.Request) (map[string]string, bool) {
	if rt.pattern == nil || !rt.matchMethod(r.Method) {
		return nil, false
	}
	return rt.pattern.match(r.URL.Path)
}

// String returns "METHOD pattern".
func (rt Route) String() string {
	method := rt.Method
	if method == "" {
		method = MethodAny
	}
	return method + " " + rt.Pattern
}
