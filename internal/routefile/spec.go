package routefile

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// DefaultExtension is appended to module references that have no extension.
const DefaultExtension = ".yaml"

// File is the decoded content of a route module.
type File struct {
	// Include lists modules whose routes precede this file's own routes.
	Include []string `yaml:"include"`

	// Routes are this file's own routes, in registration order.
	Routes []RouteSpec `yaml:"routes"`
}

// RouteSpec declares one handler.
type RouteSpec struct {
	Method   string            `yaml:"method"`
	Path     string            `yaml:"path"`
	When     string            `yaml:"when"`
	Status   int               `yaml:"status"`
	Headers  map[string]string `yaml:"headers"`
	Body     string            `yaml:"body"`
	JSON     any               `yaml:"json"`
	File     string            `yaml:"file"`
	Redirect string            `yaml:"redirect"`
}

var methodToken = regexp.MustCompile(`^[A-Z]+$`)

// Validate checks a route declaration.
func (s *RouteSpec) Validate() error {
	if s.Path == "" {
		return errors.New("path is required")
	}
	if !strings.HasPrefix(s.Path, "/") {
		return fmt.Errorf("path %q must start with /", s.Path)
	}

	method := strings.ToUpper(s.Method)
	if method != "" && method != "*" && !methodToken.MatchString(method) {
		return fmt.Errorf("invalid method %q", s.Method)
	}

	if s.Status != 0 && (s.Status < 100 || s.Status > 599) {
		return fmt.Errorf("invalid status %d", s.Status)
	}

	bodies := 0
	for _, set := range []bool{s.Body != "", s.JSON != nil, s.File != "", s.Redirect != ""} {
		if set {
			bodies++
		}
	}
	if bodies > 1 {
		return errors.New("only one of body, json, file and redirect may be set")
	}
	return nil
}

// status returns the configured status or the default for the route kind.
func (s *RouteSpec) status() int {
	switch {
	case s.Status != 0:
		return s.Status
	case s.Redirect != "":
		return http.StatusFound
	default:
		return http.StatusOK
	}
}

var wildcard = regexp.MustCompile(`\{([^{}.$]+)(?:\.\.\.)?\}`)

// wildcardNames returns the names of the path wildcards in pattern.
func wildcardNames(pattern string) []string {
	var names []string
	for _, m := range wildcard.FindAllStringSubmatch(pattern, -1) {
		names = append(names, m[1])
	}
	return names
}
