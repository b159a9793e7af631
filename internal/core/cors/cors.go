// Package cors resolves the Cross-Origin Resource Sharing headers for a
// request from a static server-wide policy.
package cors

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// Header names.
const (
	HeaderOrigin           = "Origin"
	HeaderRequestMethod    = "Access-Control-Request-Method"
	HeaderRequestHeaders   = "Access-Control-Request-Headers"
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderExposeHeaders    = "Access-Control-Expose-Headers"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderMaxAge           = "Access-Control-Max-Age"
	HeaderVary             = "Vary"
)

// Config is the CORS policy. It is not modified after construction.
type Config struct {
	// Enabled turns CORS handling on with the default echo policy.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// Whitelist, when set, is the exhaustive list of allowed origins.
	Whitelist []string `koanf:"whitelist" json:"whitelist,omitempty"`

	// Blacklist lists denied origins. Ignored when Whitelist is set.
	Blacklist []string `koanf:"blacklist" json:"blacklist,omitempty"`

	AllowedMethods []string `koanf:"allowedmethods" json:"allowed_methods,omitempty"`
	AllowedHeaders []string `koanf:"allowedheaders" json:"allowed_headers,omitempty"`
	ExposedHeaders []string `koanf:"exposedheaders" json:"exposed_headers,omitempty"`

	AllowCredentials bool `koanf:"credentials" json:"credentials"`

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the header.
	MaxAge int `koanf:"maxage" json:"max_age"`
}

// Active reports whether any key of the policy is set. A single key turns
// CORS on for the whole server.
func (c Config) Active() bool {
	return c.Enabled ||
		len(c.Whitelist) > 0 ||
		len(c.Blacklist) > 0 ||
		len(c.AllowedMethods) > 0 ||
		len(c.AllowedHeaders) > 0 ||
		len(c.ExposedHeaders) > 0 ||
		c.AllowCredentials ||
		c.MaxAge > 0
}

// Request is the CORS relevant part of an HTTP request.
type Request struct {
	Origin           string
	Method           string
	RequestedMethod  string
	RequestedHeaders string
}

// RequestFrom extracts the CORS metadata of r.
func RequestFrom(r *http.Request) Request {
	return Request{
		Origin:           r.Header.Get(HeaderOrigin),
		Method:           r.Method,
		RequestedMethod:  r.Header.Get(HeaderRequestMethod),
		RequestedHeaders: r.Header.Get(HeaderRequestHeaders),
	}
}

// Preflight reports whether the request is a CORS preflight.
func (r Request) Preflight() bool {
	return r.Method == http.MethodOptions && r.Origin != "" && r.RequestedMethod != ""
}

// Decision is the outcome of resolving a request against a policy.
type Decision struct {
	// Allowed reports whether the origin may read the response.
	Allowed bool

	// Preflight reports whether the request must be answered with 204
	// without reaching the handlers.
	Preflight bool

	// Header holds the response headers to add.
	Header http.Header
}

// Resolve computes the CORS decision for req. It never fails: a denied
// origin yields a decision carrying only the Vary header.
func Resolve(req Request, cfg Config) Decision {
	d := Decision{
		Preflight: req.Preflight(),
		Header:    make(http.Header),
	}
	h := d.Header
	h.Add(HeaderVary, HeaderOrigin)
	if req.Origin == "" || !originAllowed(req.Origin, cfg) {
		return d
	}
	d.Allowed = true
	h.Set(HeaderAllowOrigin, req.Origin)

	switch {
	case len(cfg.AllowedMethods) > 0:
		h.Set(HeaderAllowMethods, strings.Join(cfg.AllowedMethods, ", "))
	case d.Preflight:
		h.Set(HeaderAllowMethods, req.RequestedMethod)
	}

	switch {
	case len(cfg.AllowedHeaders) > 0:
		h.Set(HeaderAllowHeaders, strings.Join(cfg.AllowedHeaders, ", "))
	case req.RequestedHeaders != "":
		h.Set(HeaderAllowHeaders, req.RequestedHeaders)
	}

	if len(cfg.ExposedHeaders) > 0 {
		h.Set(HeaderExposeHeaders, strings.Join(cfg.ExposedHeaders, ", "))
	}
	if cfg.AllowCredentials {
		h.Set(HeaderAllowCredentials, "true")
	}
	if cfg.MaxAge > 0 {
		h.Set(HeaderMaxAge, strconv.Itoa(cfg.MaxAge))
	}
	return d
}

func originAllowed(origin string, cfg Config) bool {
	if len(cfg.Whitelist) > 0 {
		return slices.Contains(cfg.Whitelist, origin)
	}
	if len(cfg.Blacklist) > 0 {
		return !slices.Contains(cfg.Blacklist, origin)
	}
	return true
}

// Apply adds the decision's headers to h.
func (d Decision) Apply(h http.Header) {
	for k, v := range d.Header {
		for _, s := range v {
			h.Add(k, s)
		}
	}
}

// Middleware answers preflights and adds CORS headers to every response.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Resolve(RequestFrom(r), cfg)
			d.Apply(w.Header())

			if d.Preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
