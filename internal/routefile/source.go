package routefile

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/routing"
)

// Canonical returns the absolute, symlink-resolved form of path. When the
// path does not exist the cleaned absolute path is returned.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// entry is one cached file.
type entry struct {
	data []byte
	file *File    // nil for raw dependency files (response bodies)
	deps []string // direct dependencies, canonical
}

// Source is a registry of parsed route module files keyed by canonical
// path. It is owned by one server instance.
type Source struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewSource creates an empty registry.
func NewSource() *Source {
	return &Source{entries: make(map[string]*entry)}
}

// Cached reports whether path is held in the registry.
func (s *Source) Cached(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[path]
	return ok
}

// Len returns the number of cached files.
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Invalidate drops path from the registry.
func (s *Source) Invalidate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, path)
}

// InvalidateTree drops path and every file it transitively depends on.
func (s *Source) InvalidateTree(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stack := []string{path}
	seen := make(map[string]bool)
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[p] {
			continue
		}
		seen[p] = true
		if e, ok := s.entries[p]; ok {
			stack = append(stack, e.deps...)
			delete(s.entries, p)
		}
	}
}

// Result describes one module execution.
type Result struct {
	// Routes is the number of handlers appended.
	Routes int

	// Dependencies lists every file read on behalf of the module, excluding
	// the module itself, sorted.
	Dependencies []string

	// Fingerprint is a hash over the module and all its dependencies.
	Fingerprint string
}

// Execute runs the module at path (canonical) and appends its routes to
// reg. Included modules contribute their routes first.
func (s *Source) Execute(path string, reg *routing.Registrar) (*Result, error) {
	ex := &execution{
		src:    s,
		reg:    reg,
		seen:   make(map[string]bool),
		ran:    make(map[string]bool),
		hasher: murmur3.New64(),
	}
	if err := ex.run(path, nil); err != nil {
		return nil, err
	}

	delete(ex.seen, path)
	deps := make([]string, 0, len(ex.seen))
	for dep := range ex.seen {
		deps = append(deps, dep)
	}
	sort.Strings(deps)

	return &Result{
		Routes:       ex.routes,
		Dependencies: deps,
		Fingerprint:  hex.EncodeToString(ex.hasher.Sum(nil)),
	}, nil
}

type execution struct {
	src    *Source
	reg    *routing.Registrar
	seen   map[string]bool
	ran    map[string]bool
	routes int
	hasher hash.Hash64
}

func (ex *execution) run(path string, stack []string) error {
	if slices.Contains(stack, path) {
		cycle := append(append([]string(nil), stack...), path)
		return domain.ErrIncludeCycle.WithDetails(strings.Join(cycle, " -> "))
	}
	if ex.ran[path] {
		return nil
	}
	stack = append(stack, path)
	ex.seen[path] = true
	ex.ran[path] = true

	e, err := ex.src.module(path)
	if err != nil {
		return err
	}
	ex.hasher.Write(e.data)

	dir := filepath.Dir(path)
	for _, inc := range e.file.Include {
		incPath, err := Canonical(resolveRelative(dir, inc))
		if err != nil {
			return domain.ErrInvalidRouteFile.WithDetails(path).WithCause(err)
		}
		if err := ex.run(incPath, stack); err != nil {
			return err
		}
	}

	for i := range e.file.Routes {
		spec := &e.file.Routes[i]
		rt, err := ex.compile(path, dir, spec)
		if err != nil {
			return domain.ErrInvalidRouteFile.
				WithDetails(fmt.Sprintf("%s: routes[%d]", path, i)).
				WithCause(err)
		}
		ex.reg.Add(rt)
		ex.routes++
	}
	return nil
}

func (ex *execution) compile(path, dir string, spec *RouteSpec) (routing.Route, error) {
	var body []byte
	if spec.File != "" {
		bodyPath, err := Canonical(resolveRelative(dir, spec.File))
		if err != nil {
			return routing.Route{}, err
		}
		raw, err := ex.src.raw(bodyPath)
		if err != nil {
			return routing.Route{}, err
		}
		ex.seen[bodyPath] = true
		ex.hasher.Write(raw.data)
		body = raw.data
	}

	rt, err := compileRoute(spec, body)
	if err != nil {
		return routing.Route{}, err
	}
	rt.Source = path
	return rt, nil
}

// module returns the parsed module at path, reading it on a cache miss.
func (s *Source) module(path string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[path]; ok && e.file != nil {
		return e, nil
	}

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	file, err := Parse(data)
	if err != nil {
		return nil, domain.ErrInvalidRouteFile.WithDetails(path).WithCause(err)
	}

	e := &entry{data: data, file: file}
	dir := filepath.Dir(path)
	for _, inc := range file.Include {
		if p, err := Canonical(resolveRelative(dir, inc)); err == nil {
			e.deps = append(e.deps, p)
		}
	}
	for _, r := range file.Routes {
		if r.File == "" {
			continue
		}
		if p, err := Canonical(resolveRelative(dir, r.File)); err == nil {
			e.deps = append(e.deps, p)
		}
	}
	s.entries[path] = e
	return e, nil
}

// raw returns the raw content of a response body file.
func (s *Source) raw(path string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[path]; ok {
		return e, nil
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	e := &entry{data: data}
	s.entries[path] = e
	return e, nil
}

// Parse decodes a route module.
func Parse(data []byte) (*File, error) {
	var f File
	if len(bytes.TrimSpace(data)) == 0 {
		return &f, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	for i := range f.Routes {
		if err := f.Routes[i].Validate(); err != nil {
			return nil, fmt.Errorf("routes[%d]: %w", i, err)
		}
	}
	return &f, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrRouteFileNotFound.WithDetails(path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func resolveRelative(dir, ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(dir, ref)
}
