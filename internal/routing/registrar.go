package routing

import (
	"errors"
	"net/http"
)

// Registrar appends routes to a handler list. It is what registration
// functions receive.
type Registrar struct {
	list   HandlerList
	source string
	errs   []error
}

// NewRegistrar returns a registrar appending to l, tagging routes with source.
func NewRegistrar(l HandlerList, source string) *Registrar {
	return &Registrar{list: l, source: source}
}

// Add appends an already built route.
func (r *Registrar) Add(rt Route) {
	if rt.Source == "" {
		rt.Source = r.source
	}
	r.list.Append(rt)
}

// Handle registers h for method and pattern. Invalid patterns are recorded
// and reported by Err.
func (r *Registrar) Handle(method, pattern string, h http.Handler) {
	rt, err := NewRoute(method, pattern, h)
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.Add(rt)
}

// HandleFunc registers a handler function.
func (r *Registrar) HandleFunc(method, pattern string, fn http.HandlerFunc) {
	r.Handle(method, pattern, fn)
}

// Get registers a GET (and HEAD) handler.
func (r *Registrar) Get(pattern string, fn http.HandlerFunc) {
	r.Handle(http.MethodGet, pattern, fn)
}

// Post registers a POST handler.
func (r *Registrar) Post(pattern string, fn http.HandlerFunc) {
	r.Handle(http.MethodPost, pattern, fn)
}

// Put registers a PUT handler.
func (r *Registrar) Put(pattern string, fn http.HandlerFunc) {
	r.Handle(http.MethodPut, pattern, fn)
}

// Delete registers a DELETE handler.
func (r *Registrar) Delete(pattern string, fn http.HandlerFunc) {
	r.Handle(http.MethodDelete, pattern, fn)
}

// Any registers a handler for every method.
func (r *Registrar) Any(pattern string, fn http.HandlerFunc) {
	r.Handle(MethodAny, pattern, fn)
}

// Err returns the registration errors, if any.
func (r *Registrar) Err() error {
	return errors.Join(r.errs...)
}
