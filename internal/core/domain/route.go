package domain

import (
	"fmt"
	"time"
)

// Range is an inclusive index interval [Start, End] within the handler list.
// A range with End < Start is empty; it still records the position Start
// the module occupies in the global order.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewRange returns the range covering n handlers beginning at start.
func NewRange(start, n int) Range {
	return Range{Start: start, End: start + n - 1}
}

// Len returns the number of handlers in the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Empty reports whether the range holds no handlers.
func (r Range) Empty() bool {
	return r.Len() == 0
}

// Shift returns the range moved by delta positions.
func (r Range) Shift(delta int) Range {
	return Range{Start: r.Start + delta, End: r.End + delta}
}

// Overlaps reports whether two non-empty ranges share an index.
func (r Range) Overlaps(o Range) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.Start <= o.End && o.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// RouteModule is one route source file and the handlers it contributed at
// its last (re)load.
type RouteModule struct {
	// Path is the absolute, symlink-resolved file path. It is the primary key.
	Path string `json:"path"`

	// Range is the module's position in the handler list.
	Range Range `json:"range"`

	// Dependencies lists every file read while executing the module.
	Dependencies []string `json:"dependencies,omitempty"`

	// Fingerprint is a hash of the module source at load time.
	Fingerprint string `json:"fingerprint,omitempty"`

	// LoadedAt is the time of the last successful load.
	LoadedAt time.Time `json:"loaded_at"`
}

// Clone returns a copy of the module that shares no slices with the original.
func (m *RouteModule) Clone() *RouteModule {
	if m == nil {
		return nil
	}
	c := *m
	c.Dependencies = append([]string(nil), m.Dependencies...)
	return &c
}
