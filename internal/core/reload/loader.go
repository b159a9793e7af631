package reload

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/routefile"
	"github.com/yndnr/hotroute/internal/routing"
)

// ModuleRef names a route source: a FileRef or a RegisterFunc.
type ModuleRef interface {
	moduleRef()
}

// FileRef is a route module file path. Relative paths are resolved against
// the loader's base directory, then the working directory.
type FileRef string

// RegisterFunc registers routes directly. Its routes are not tracked for
// reload.
type RegisterFunc func(*routing.Registrar) error

func (FileRef) moduleRef()      {}
func (RegisterFunc) moduleRef() {}

// Watcher receives the files a loaded module depends on.
type Watcher interface {
	Add(path string)
}

type nopWatcher struct{}

func (nopWatcher) Add(string) {}

// Loader executes route modules against a routing table.
type Loader struct {
	table   *routing.Table
	source  *routefile.Source
	index   *Index
	assoc   *Associator
	watcher Watcher
	baseDir string
	logger  *slog.Logger
	now     func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithBaseDir sets the directory relative module paths are resolved against.
func WithBaseDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.baseDir = dir
	}
}

// WithWatcher sets the watcher loaded files are registered with.
func WithWatcher(w Watcher) LoaderOption {
	return func(l *Loader) {
		l.watcher = w
	}
}

// WithSource sets the route module cache.
func WithSource(src *routefile.Source) LoaderOption {
	return func(l *Loader) {
		l.source = src
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader appending to table.
func NewLoader(table *routing.Table, opts ...LoaderOption) *Loader {
	l := &Loader{
		table:   table,
		source:  routefile.NewSource(),
		index:   NewIndex(),
		assoc:   NewAssociator(),
		watcher: nopWatcher{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.baseDir == "" {
		l.baseDir, _ = os.Getwd()
	}
	return l
}

// Index returns the range index.
func (l *Loader) Index() *Index { return l.index }

// Associator returns the dependency associator.
func (l *Loader) Associator() *Associator { return l.assoc }

// Table returns the routing table.
func (l *Loader) Table() *routing.Table { return l.table }

// Load registers ref. A RegisterFunc is run immediately and returns a nil
// module. A FileRef that resolves to no file is a no-op returning a nil
// module and a nil error.
func (l *Loader) Load(ref ModuleRef) (*domain.RouteModule, error) {
	var m *domain.RouteModule
	err := l.table.Update(func(list routing.HandlerList) error {
		var err error
		m, err = l.load(list, ref)
		return err
	})
	return m, err
}

func (l *Loader) load(list routing.HandlerList, ref ModuleRef) (*domain.RouteModule, error) {
	switch ref := ref.(type) {
	case RegisterFunc:
		return nil, l.register(list, ref)
	case FileRef:
		path, ok := l.Resolve(string(ref))
		if !ok {
			l.logger.Debug("route module not found, skipping", "ref", string(ref))
			return nil, nil
		}
		if _, ok := l.index.RangeOf(path); ok {
			return l.reloadFile(list, path)
		}
		return l.loadFile(list, path, nil)
	default:
		return nil, domain.ErrRegistration.WithDetails("unsupported module reference")
	}
}

func (l *Loader) register(list routing.HandlerList, fn RegisterFunc) error {
	before := list.Len()
	reg := routing.NewRegistrar(list, "")
	err := fn(reg)
	if err == nil {
		err = reg.Err()
	}
	if err != nil {
		truncate(list, before)
		return domain.ErrRegistration.WithCause(err)
	}
	return nil
}

// Resolve maps a module reference to an absolute, symlink-resolved path of
// an existing regular file. Candidates are tried in order: ref relative to
// the base directory, the same with the default extension, then ref
// relative to the working directory (with and without the extension).
func (l *Loader) Resolve(ref string) (string, bool) {
	var candidates []string
	add := func(p string) {
		candidates = append(candidates, p)
		if filepath.Ext(p) == "" {
			candidates = append(candidates, p+routefile.DefaultExtension)
		}
	}

	if filepath.IsAbs(ref) {
		add(ref)
	} else {
		add(filepath.Join(l.baseDir, ref))
		if cwd, err := os.Getwd(); err == nil {
			add(filepath.Join(cwd, ref))
		}
	}

	for _, c := range candidates {
		if !isFile(c) {
			continue
		}
		path, err := routefile.Canonical(c)
		if err != nil {
			continue
		}
		return path, true
	}
	return "", false
}

// reloadFile removes the routes of the module at path and loads it again at
// the same position. A module whose file is gone or fails to load is
// dropped from the index and returns a nil module.
func (l *Loader) reloadFile(list routing.HandlerList, path string) (*domain.RouteModule, error) {
	rng, ok := l.index.RangeOf(path)
	if !ok {
		if !isFile(path) {
			return nil, nil
		}
		return l.loadFile(list, path, nil)
	}
	if err := l.index.RemoveRange(list, rng.Start, rng.End); err != nil {
		return nil, err
	}
	l.index.Clear(path)
	if !isFile(path) {
		l.index.Unregister(path)
		return nil, nil
	}
	m, err := l.loadFile(list, path, &rng.Start)
	if err != nil {
		l.index.Unregister(path)
	}
	return m, err
}

// loadFile executes the module at path and appends its routes. When prev is
// set the new slice is moved from the tail to *prev.
func (l *Loader) loadFile(list routing.HandlerList, path string, prev *int) (*domain.RouteModule, error) {
	l.source.InvalidateTree(path)

	before := list.Len()
	res, err := l.source.Execute(path, routing.NewRegistrar(list, path))
	if err != nil {
		truncate(list, before)
		return nil, err
	}
	after := list.Len()
	n := after - before

	rng := domain.NewRange(before, n)
	if prev != nil {
		if *prev != before && n > 0 {
			slice := list.SpliceOut(before, after-1)
			list.SpliceIn(*prev, slice)
		}
		l.index.InsertAt(*prev, n, path)
		rng = domain.NewRange(*prev, n)
	}

	m := &domain.RouteModule{
		Path:         path,
		Range:        rng,
		Dependencies: res.Dependencies,
		Fingerprint:  res.Fingerprint,
		LoadedAt:     l.now(),
	}
	l.index.Record(m)

	l.assoc.ClearRoot(path)
	l.watcher.Add(path)
	for _, dep := range res.Dependencies {
		l.assoc.Associate(dep, path)
		l.watcher.Add(dep)
	}

	l.logger.Debug("route module loaded",
		"file", path,
		"range", rng.String(),
		"handlers", n,
		"dependencies", len(res.Dependencies),
	)
	return m.Clone(), nil
}

// truncate drops every handler at or after n.
func truncate(list routing.HandlerList, n int) {
	if list.Len() > n {
		list.SpliceOut(n, list.Len()-1)
	}
}

// isFile reports whether path is an existing regular file.
func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
