package reload

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/routing"
)

// Index tracks the handler list range of every loaded route module.
type Index struct {
	mu      sync.RWMutex
	modules map[string]*entry
	next    uint64
}

// entry is one tracked module. seq is assigned when the path is first
// recorded and orders modules that share a start position.
type entry struct {
	module *domain.RouteModule
	seq    uint64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{modules: make(map[string]*entry)}
}

// Register records the range of the module at path.
func (x *Index) Register(path string, r domain.Range) {
	x.Record(&domain.RouteModule{Path: path, Range: r})
}

// Record stores m, replacing any previous entry for m.Path. A replaced
// entry keeps its registration order.
func (x *Index) Record(m *domain.RouteModule) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if e, ok := x.modules[m.Path]; ok {
		e.module = m.Clone()
		return
	}
	x.modules[m.Path] = &entry{module: m.Clone(), seq: x.next}
	x.next++
}

// Clear empties the range of the module at path, leaving it at its start
// position.
func (x *Index) Clear(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if e, ok := x.modules[path]; ok {
		e.module.Range = domain.NewRange(e.module.Range.Start, 0)
	}
}

// Unregister forgets the module at path.
func (x *Index) Unregister(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.modules, path)
}

// RangeOf returns the range of the module at path.
func (x *Index) RangeOf(path string) (domain.Range, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.modules[path]
	if !ok {
		return domain.Range{}, false
	}
	return e.module.Range, true
}

// Get returns a copy of the module at path.
func (x *Index) Get(path string) (*domain.RouteModule, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.modules[path]
	if !ok {
		return nil, false
	}
	return e.module.Clone(), true
}

// Len returns the number of tracked modules.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.modules)
}

// Modules returns copies of all tracked modules ordered by position.
func (x *Index) Modules() []*domain.RouteModule {
	entries := x.ordered()
	out := make([]*domain.RouteModule, len(entries))
	for i, e := range entries {
		out[i] = e.module
	}
	return out
}

// ordered returns copies of the entries sorted by start position, then by
// registration order.
func (x *Index) ordered() []entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]entry, 0, len(x.modules))
	for _, e := range x.modules {
		out = append(out, entry{module: e.module.Clone(), seq: e.seq})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].module.Range.Start, out[j].module.Range.Start
		if a != b {
			return a < b
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// RemoveRange deletes the handlers [start, end] from l and moves every
// module starting after end down by the number of removed handlers. An
// empty range removes nothing.
func (x *Index) RemoveRange(l routing.HandlerList, start, end int) error {
	if end < start {
		return nil
	}
	if start < 0 || end >= l.Len() {
		return domain.ErrRangeOutOfBounds.WithDetails(
			fmt.Sprintf("remove [%d,%d] from %d handlers", start, end, l.Len()))
	}

	l.SpliceOut(start, end)

	n := end - start + 1
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, e := range x.modules {
		if e.module.Range.Start > end {
			e.module.Range = e.module.Range.Shift(-n)
		}
	}
	return nil
}

// InsertAt makes room for n handlers of the module except inserted at pos.
// Modules starting after pos move up by n, as do modules starting at pos
// that were registered after except. Earlier modules with an empty range
// at pos stay in front of it.
func (x *Index) InsertAt(pos, n int, except string) {
	if n <= 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	seq := x.next
	if e, ok := x.modules[except]; ok {
		seq = e.seq
	}
	for path, e := range x.modules {
		if path == except {
			continue
		}
		start := e.module.Range.Start
		if start > pos || (start == pos && e.seq > seq) {
			e.module.Range = e.module.Range.Shift(n)
		}
	}
}

// Check verifies that the tracked ranges fit a list of n handlers, do not
// overlap and keep the order the modules were registered in.
func (x *Index) Check(n int) error {
	entries := x.ordered()
	for i, e := range entries {
		m, r := e.module, e.module.Range
		if !r.Empty() && (r.Start < 0 || r.End >= n) {
			return domain.ErrRangeOutOfBounds.WithDetails(
				fmt.Sprintf("%s %s outside %d handlers", m.Path, r, n))
		}
		for _, o := range entries[i+1:] {
			if r.Overlaps(o.module.Range) {
				return domain.ErrRangeOutOfBounds.WithDetails(
					fmt.Sprintf("%s %s overlaps %s %s", m.Path, r, o.module.Path, o.module.Range))
			}
		}
		if i > 0 && entries[i-1].seq > e.seq {
			return domain.ErrRangeOutOfBounds.WithDetails(
				fmt.Sprintf("%s %s precedes earlier module %s", entries[i-1].module.Path,
					entries[i-1].module.Range, m.Path))
		}
	}
	return nil
}
