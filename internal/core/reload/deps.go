package reload

import (
	"sort"
	"sync"
)

// Associator maps dependency files to the root modules that read them.
// A root's associations are cleared and rebuilt each time it loads and are
// never pruned otherwise.
type Associator struct {
	mu    sync.RWMutex
	roots map[string]map[string]struct{} // dependency -> roots
}

// NewAssociator creates an empty associator.
func NewAssociator() *Associator {
	return &Associator{roots: make(map[string]map[string]struct{})}
}

// Associate records that root depends on dep. It is idempotent.
func (a *Associator) Associate(dep, root string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.roots[dep]
	if !ok {
		set = make(map[string]struct{})
		a.roots[dep] = set
	}
	set[root] = struct{}{}
}

// RootsOf returns the roots depending on file, sorted. The result is empty
// when file is not a known dependency.
func (a *Associator) RootsOf(file string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	set := a.roots[file]
	roots := make([]string, 0, len(set))
	for r := range set {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

// IsDependency reports whether any root depends on file.
func (a *Associator) IsDependency(file string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.roots[file]) > 0
}

// ClearRoot removes root from every dependency set.
func (a *Associator) ClearRoot(root string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for dep, set := range a.roots {
		delete(set, root)
		if len(set) == 0 {
			delete(a.roots, dep)
		}
	}
}

// DependenciesOf returns the files root depends on, sorted.
func (a *Associator) DependenciesOf(root string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var deps []string
	for dep, set := range a.roots {
		if _, ok := set[root]; ok {
			deps = append(deps, dep)
		}
	}
	sort.Strings(deps)
	return deps
}
