package fswatch

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultIgnore lists the library directories never watched.
var DefaultIgnore = []string{"**/node_modules/**", "**/vendor/**"}

const defaultBuffer = 64

// Coordinator owns every watch group of one server.
type Coordinator struct {
	mu       sync.Mutex
	groups   map[string]*Group
	ignore   []string
	disabled bool
	closed   bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithIgnore replaces the ignore globs (doublestar syntax, matched against
// the absolute path).
func WithIgnore(patterns ...string) Option {
	return func(c *Coordinator) {
		c.ignore = patterns
	}
}

// WithBuffer sets the capacity of the events channel.
func WithBuffer(n int) Option {
	return func(c *Coordinator) {
		c.events = make(chan Event, n)
	}
}

// Disabled turns the coordinator into a no-op that never creates a group.
func Disabled() Option {
	return func(c *Coordinator) {
		c.disabled = true
	}
}

// New creates a Coordinator. Groups are created lazily by Add.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		groups: make(map[string]*Group),
		ignore: DefaultIgnore,
		events: make(chan Event, defaultBuffer),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the fan-in channel of all groups. It is closed by Close.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Enabled reports whether the coordinator watches anything at all.
func (c *Coordinator) Enabled() bool {
	return !c.disabled
}

// Add registers path (absolute) for watching. Setup failures are logged and
// otherwise ignored.
func (c *Coordinator) Add(path string) {
	if c.disabled || c.ignored(path) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	dir := filepath.Dir(path)
	g, ok := c.groups[dir]
	if !ok {
		var err error
		g, err = newGroup(dir)
		if err != nil {
			c.logger.Warn("failed to watch directory",
				"path", dir,
				"error", err,
			)
			return
		}
		c.groups[dir] = g
		c.wg.Add(1)
		go c.run(g)
		c.logger.Debug("watch group created", "path", dir)
	}

	if g.add(path) {
		c.logger.Debug("watching file", "file", path)
	}
}

// Watched reports whether path is registered.
func (c *Coordinator) Watched(path string) bool {
	c.mu.Lock()
	g, ok := c.groups[filepath.Dir(path)]
	c.mu.Unlock()
	return ok && g.Has(path)
}

// Groups returns the number of watch groups.
func (c *Coordinator) Groups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.groups)
}

// GroupInfo describes one watch group.
type GroupInfo struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// Snapshot returns the watch groups sorted by directory.
func (c *Coordinator) Snapshot() []GroupInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	infos := make([]GroupInfo, 0, len(c.groups))
	for dir, g := range c.groups {
		infos = append(infos, GroupInfo{Dir: dir, Files: g.Files()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Dir < infos[j].Dir })
	return infos
}

// Close releases every watcher and closes the events channel. No group
// goroutine survives it.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)

	var firstErr error
	for dir, g := range c.groups {
		if err := g.watcher.Close(); err != nil {
			c.logger.Error("failed to close watcher",
				"path", dir,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	c.groups = make(map[string]*Group)
	c.mu.Unlock()

	c.wg.Wait()
	close(c.events)
	c.logger.Debug("file watchers stopped")
	return firstErr
}

func (c *Coordinator) run(g *Group) {
	defer c.wg.Done()
	for {
		select {
		case ev, ok := <-g.watcher.Events:
			if !ok {
				return
			}
			e, ok := c.filter(g, ev)
			if !ok {
				continue
			}
			c.logger.Debug("file event",
				"file", e.Path,
				"kind", e.Kind.String(),
				"op", ev.Op.String(),
			)
			select {
			case c.events <- e:
			case <-c.done:
				return
			}
		case err, ok := <-g.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Error("file watcher error",
				"path", g.Dir,
				"error", err,
			)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) filter(g *Group, ev fsnotify.Event) (Event, bool) {
	path := filepath.Clean(ev.Name)
	if strings.HasPrefix(filepath.Base(path), ".") {
		return Event{}, false
	}
	if !g.Has(path) || c.ignored(path) {
		return Event{}, false
	}
	kind, ok := kindOf(ev.Op)
	if !ok {
		return Event{}, false
	}
	return Event{Kind: kind, Path: path}, true
}

func (c *Coordinator) ignored(path string) bool {
	slashed := strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, pattern := range c.ignore {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}
