package routing

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
)

// HandlerList is the mutable view of the handler list handed to
// Table.Update callbacks.
type HandlerList interface {
	// Len returns the number of routes.
	Len() int

	// At returns the route at index i.
	At(i int) Route

	// Append adds routes to the tail.
	Append(routes ...Route)

	// SpliceOut removes the routes in the inclusive range [start, end] and
	// returns them. An empty range (end < start) removes nothing.
	SpliceOut(start, end int) []Route

	// SpliceIn inserts routes before index pos.
	SpliceIn(pos int, routes []Route)
}

// Table is a copy-on-write, first-match routing table.
type Table struct {
	mu       sync.Mutex
	current  atomic.Pointer[[]Route]
	notFound http.Handler
}

// Option configures a Table.
type Option func(*Table)

// WithNotFound sets the handler used when no route matches.
func WithNotFound(h http.Handler) Option {
	return func(t *Table) {
		t.notFound = h
	}
}

// NewTable creates an empty routing table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		notFound: http.HandlerFunc(notFound),
	}
	for _, opt := range opts {
		opt(t)
	}
	empty := make([]Route, 0)
	t.current.Store(&empty)
	return t
}

// Snapshot returns the currently published routes. The slice must not be
// modified.
func (t *Table) Snapshot() []Route {
	return *t.current.Load()
}

// Len returns the number of published routes.
func (t *Table) Len() int {
	return len(t.Snapshot())
}

// Update runs fn against a staged copy of the list while holding the writer
// lock, then publishes the staged list. The list is published even when fn
// returns an error so that edits made before the failure stay visible.
func (t *Table) Update(fn func(HandlerList) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.Snapshot()
	staged := &list{routes: make([]Route, len(current), len(current)+8)}
	copy(staged.routes, current)

	err := fn(staged)

	published := staged.routes
	t.current.Store(&published)
	return err
}

// ServeHTTP dispatches the request to the first matching route.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	routes := t.Snapshot()
	for i := range routes {
		rt := &routes[i]
		params, ok := rt.match(r)
		if !ok {
			continue
		}
		prev := setPathValues(r, params)
		if rt.When != nil && !rt.When(r) {
			setPathValues(r, prev)
			continue
		}
		rt.Handler.ServeHTTP(w, r)
		return
	}
	t.notFound.ServeHTTP(w, r)
}

// setPathValues sets values on r and returns the values they replaced.
// When conditions read path values, so they are set before the condition
// runs and restored when it rejects the request.
func setPathValues(r *http.Request, values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	prev := make(map[string]string, len(values))
	for k, v := range values {
		prev[k] = r.PathValue(k)
		r.SetPathValue(k, v)
	}
	return prev
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    "HR-SYS-4040",
		"message": "no route for " + r.Method + " " + r.URL.Path,
	})
}

// list is the staged HandlerList used inside Update.
type list struct {
	routes []Route
}

func (l *list) Len() int { return len(l.routes) }

func (l *list) At(i int) Route { return l.routes[i] }

func (l *list) Append(routes ...Route) {
	l.routes = append(l.routes, routes...)
}

func (l *list) SpliceOut(start, end int) []Route {
	if end < start {
		return nil
	}
	if start < 0 || end >= len(l.routes) {
		panic("routing: SpliceOut range out of bounds")
	}
	removed := make([]Route, end-start+1)
	copy(removed, l.routes[start:end+1])
	l.routes = append(l.routes[:start], l.routes[end+1:]...)
	return removed
}

func (l *list) SpliceIn(pos int, routes []Route) {
	if pos < 0 || pos > len(l.routes) {
		panic("routing: SpliceIn position out of bounds")
	}
	if len(routes) == 0 {
		return
	}
	grown := make([]Route, 0, len(l.routes)+len(routes))
	grown = append(grown, l.routes[:pos]...)
	grown = append(grown, routes...)
	grown = append(grown, l.routes[pos:]...)
	l.routes = grown
}
