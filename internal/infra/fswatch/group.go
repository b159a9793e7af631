package fswatch

import (
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Group is the set of watched files in one directory together with the
// watcher it owns.
type Group struct {
	Dir string

	watcher *fsnotify.Watcher
	mu      sync.RWMutex
	watched map[string]struct{}
}

func newGroup(dir string) (*Group, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &Group{
		Dir:     dir,
		watcher: w,
		watched: make(map[string]struct{}),
	}, nil
}

func (g *Group) add(path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.watched[path]; ok {
		return false
	}
	g.watched[path] = struct{}{}
	return true
}

// Has reports whether path is in the watched set.
func (g *Group) Has(path string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.watched[path]
	return ok
}

// Files returns the watched files, sorted.
func (g *Group) Files() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	files := make([]string, 0, len(g.watched))
	for f := range g.watched {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
