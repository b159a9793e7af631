package fswatch

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Kind is the semantic kind of a file event.
type Kind int

const (
	Created Kind = iota + 1
	Changed
	Removed
)

// String returns the lower case name of the kind.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one semantic file event.
type Event struct {
	Kind Kind
	Path string
}

func (e Event) String() string {
	return e.Kind.String() + " " + e.Path
}

// kindOf maps a raw notification to its semantic kind. Chmod alone carries
// no content change and reports false.
func kindOf(op fsnotify.Op) (Kind, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return Removed, true
	case op.Has(fsnotify.Create):
		return Created, true
	case op.Has(fsnotify.Write):
		return Changed, true
	default:
		return 0, false
	}
}
