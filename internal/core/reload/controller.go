package reload

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/infra/fswatch"
	"github.com/yndnr/hotroute/internal/routing"
)

// FileState is the reload state of one route module file.
type FileState int

const (
	Unregistered FileState = iota
	Registered
	Reloading
	Removed
)

func (s FileState) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Registered:
		return "registered"
	case Reloading:
		return "reloading"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Cause is why a module was (re)loaded.
type Cause string

const (
	CauseInitial    Cause = "initial"
	CauseCreated    Cause = "created"
	CauseChanged    Cause = "changed"
	CauseDependency Cause = "dependency"
	CauseRemoved    Cause = "removed"
)

// ReloadResult describes one load attempt or removal.
type ReloadResult struct {
	Path     string
	Trigger  string
	Cause    Cause
	Module   *domain.RouteModule
	Err      error
	Duration time.Duration
}

// Controller drives module reloads from file events.
type Controller struct {
	loader  *Loader
	enabled bool
	logger  *slog.Logger

	mu        sync.Mutex
	states    map[string]FileState
	observers []func(ReloadResult)
	onEvent   []func(fswatch.Event)

	fatal chan error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRefresh enables or disables event handling.
func WithRefresh(enabled bool) ControllerOption {
	return func(c *Controller) {
		c.enabled = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a controller around loader. Refresh is enabled by
// default.
func NewController(loader *Loader, opts ...ControllerOption) *Controller {
	c := &Controller{
		loader:  loader,
		enabled: true,
		logger:  slog.Default(),
		states:  make(map[string]FileState),
		fatal:   make(chan error, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnReload registers fn to be called after every load attempt and removal.
func (c *Controller) OnReload(fn func(ReloadResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// OnEvent registers fn to be called for every handled file event.
func (c *Controller) OnEvent(fn func(fswatch.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = append(c.onEvent, fn)
}

// Fatal returns the channel reload failures are delivered on.
func (c *Controller) Fatal() <-chan error {
	return c.fatal
}

// Loader returns the underlying loader.
func (c *Controller) Loader() *Loader {
	return c.loader
}

// State returns the state of path.
func (c *Controller) State(path string) FileState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[path]
}

// Load registers ref and tracks the resulting module.
func (c *Controller) Load(ref ModuleRef) (*domain.RouteModule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	m, err := c.loader.Load(ref)
	fr, ok := ref.(FileRef)
	if !ok {
		return m, err
	}
	path, found := c.loader.Resolve(string(fr))
	if found {
		c.settle(path, m, err)
	} else {
		path = string(fr)
	}
	if m != nil || err != nil {
		c.notify(ReloadResult{
			Path:     path,
			Trigger:  path,
			Cause:    CauseInitial,
			Module:   m,
			Err:      err,
			Duration: time.Since(start),
		})
	}
	return m, err
}

// Run handles events until ctx is done or events is closed. Reload failures
// are delivered on the fatal channel and stop the loop.
func (c *Controller) Run(ctx context.Context, events <-chan fswatch.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := c.Handle(e); err != nil {
				c.logger.Error("route reload failed",
					"file", e.Path,
					"error", err,
				)
				select {
				case c.fatal <- err:
				default:
				}
				return
			}
		}
	}
}

// Handle applies one file event.
func (c *Controller) Handle(e fswatch.Event) error {
	if !c.enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, fn := range c.onEvent {
		fn(e)
	}

	state := c.states[e.Path]
	switch e.Kind {
	case fswatch.Created:
		switch {
		case state == Registered:
			return c.reload(e.Path, e.Path, CauseChanged)
		case c.loader.assoc.IsDependency(e.Path):
			return c.reloadRoots(e.Path)
		default:
			return c.create(e.Path)
		}

	case fswatch.Changed:
		switch {
		case state == Registered:
			return c.reload(e.Path, e.Path, CauseChanged)
		case c.loader.assoc.IsDependency(e.Path):
			return c.reloadRoots(e.Path)
		}

	case fswatch.Removed:
		switch {
		case state == Registered:
			return c.remove(e.Path)
		case c.loader.assoc.IsDependency(e.Path):
			c.logger.Info("route dependency removed, keeping last loaded routes",
				"file", e.Path,
				"roots", c.loader.assoc.RootsOf(e.Path),
			)
		}
	}
	return nil
}

func (c *Controller) create(path string) error {
	if !isFile(path) {
		return nil
	}
	start := time.Now()
	var m *domain.RouteModule
	err := c.loader.table.Update(func(list routing.HandlerList) error {
		var err error
		m, err = c.loader.loadFile(list, path, nil)
		return err
	})
	c.settle(path, m, err)
	c.notify(ReloadResult{
		Path:     path,
		Trigger:  path,
		Cause:    CauseCreated,
		Module:   m,
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return domain.ErrReloadFailed.WithDetails(path).WithCause(err)
	}
	c.logger.Info("route module added", "file", path, "range", m.Range.String())
	return nil
}

func (c *Controller) reloadRoots(dep string) error {
	for _, root := range c.loader.assoc.RootsOf(dep) {
		if err := c.reload(root, dep, CauseDependency); err != nil {
			return err
		}
	}
	return nil
}

// reload removes the module's range and loads it again at the same
// position. The mutation is published even when loading fails, leaving the
// module's routes absent.
func (c *Controller) reload(path, trigger string, cause Cause) error {
	c.states[path] = Reloading
	start := time.Now()

	var m *domain.RouteModule
	err := c.loader.table.Update(func(list routing.HandlerList) error {
		var err error
		m, err = c.loader.reloadFile(list, path)
		return err
	})
	c.settle(path, m, err)
	c.notify(ReloadResult{
		Path:     path,
		Trigger:  trigger,
		Cause:    cause,
		Module:   m,
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return domain.ErrReloadFailed.WithDetails(path).WithCause(err)
	}
	if m == nil {
		c.logger.Info("route module gone during reload", "file", path)
		return nil
	}
	c.logger.Info("route module reloaded",
		"file", path,
		"trigger", trigger,
		"range", m.Range.String(),
	)
	return nil
}

func (c *Controller) remove(path string) error {
	start := time.Now()
	err := c.loader.table.Update(func(list routing.HandlerList) error {
		rng, ok := c.loader.index.RangeOf(path)
		if !ok {
			return nil
		}
		if err := c.loader.index.RemoveRange(list, rng.Start, rng.End); err != nil {
			return err
		}
		c.loader.index.Unregister(path)
		return nil
	})
	c.states[path] = Removed
	c.notify(ReloadResult{
		Path:     path,
		Trigger:  path,
		Cause:    CauseRemoved,
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return domain.ErrReloadFailed.WithDetails(path).WithCause(err)
	}
	c.logger.Info("route module removed", "file", path)
	return nil
}

// settle records the state reached after a load attempt.
func (c *Controller) settle(path string, m *domain.RouteModule, err error) {
	switch {
	case err != nil:
		c.states[path] = Unregistered
	case m == nil:
		c.states[path] = Removed
	default:
		c.states[path] = Registered
	}
}

func (c *Controller) notify(r ReloadResult) {
	for _, fn := range c.observers {
		fn(r)
	}
}
