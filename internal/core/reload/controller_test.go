package reload

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/infra/fswatch"
	"github.com/yndnr/hotroute/internal/routing"
)

type fixture struct {
	dir  string
	tbl  *routing.Table
	ctrl *Controller

	mu      sync.Mutex
	results []ReloadResult
}

func newFixture(t *testing.T, opts ...ControllerOption) *fixture {
	t.Helper()
	f := &fixture{dir: tempDir(t), tbl: routing.NewTable()}
	loader := NewLoader(f.tbl, WithBaseDir(f.dir))
	f.ctrl = NewController(loader, opts...)
	f.ctrl.OnReload(func(r ReloadResult) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.results = append(f.results, r)
	})
	return f
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	return writeFile(t, filepath.Join(f.dir, name), content)
}

func (f *fixture) load(t *testing.T, ref ModuleRef) *domain.RouteModule {
	t.Helper()
	m, err := f.ctrl.Load(ref)
	require.NoError(t, err)
	return m
}

func (f *fixture) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = nil
}

func (f *fixture) reloaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var paths []string
	for _, r := range f.results {
		paths = append(paths, r.Path)
	}
	return paths
}

func (f *fixture) check(t *testing.T) {
	t.Helper()
	assert.NoError(t, f.ctrl.Loader().Index().Check(f.tbl.Len()))
}

func TestController_ReloadPreservesOrder(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "m.yaml", module("/m1", "/m2", "/m3"))

	f.load(t, static("/s"))
	m := f.load(t, FileRef("m.yaml"))
	f.load(t, static("/{catchall...}"))
	assert.Equal(t, domain.Range{Start: 1, End: 3}, m.Range)

	f.write(t, "m.yaml", module("/n1", "/n2"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: path}))
	assert.Equal(t, []string{"/s", "/n1", "/n2", "/{catchall...}"}, patterns(f.tbl))

	f.write(t, "m.yaml", module("/p1", "/p2", "/p3", "/p4"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: path}))
	assert.Equal(t, []string{"/s", "/p1", "/p2", "/p3", "/p4", "/{catchall...}"}, patterns(f.tbl))

	rng, ok := f.ctrl.Loader().Index().RangeOf(path)
	require.True(t, ok)
	assert.Equal(t, domain.Range{Start: 1, End: 4}, rng)
	assert.Equal(t, Registered, f.ctrl.State(path))
	assert.Equal(t, "/p2", get(f.tbl, "/p2").Body.String())
	f.check(t)
}

func TestController_ReloadShiftsFollowingModules(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.yaml", module("/a1"))
	b := f.write(t, "b.yaml", module("/b1", "/b2"))
	f.load(t, FileRef("a.yaml"))
	f.load(t, FileRef("b.yaml"))

	f.write(t, "a.yaml", module("/a1", "/a2", "/a3"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: a}))

	rng, _ := f.ctrl.Loader().Index().RangeOf(b)
	assert.Equal(t, domain.Range{Start: 3, End: 4}, rng)
	assert.Equal(t, []string{"/a1", "/a2", "/a3", "/b1", "/b2"}, patterns(f.tbl))
	f.check(t)
}

func TestController_LoadRegisteredFileReloadsInPlace(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "m.yaml", module("/m1"))
	f.load(t, static("/s"))
	first := f.load(t, FileRef("m.yaml"))
	f.load(t, static("/z"))

	again := f.load(t, FileRef("m.yaml"))
	require.NotNil(t, again)
	assert.Equal(t, first.Range, again.Range)
	assert.Equal(t, []string{"/s", "/m1", "/z"}, patterns(f.tbl))
	assert.Equal(t, 1, f.ctrl.Loader().Index().Len())
	f.check(t)

	f.write(t, "m.yaml", module("/m2"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: path}))
	assert.Equal(t, []string{"/s", "/m2", "/z"}, patterns(f.tbl))
	assert.Equal(t, http.StatusNotFound, get(f.tbl, "/m1").Code)
	f.check(t)
}

func TestController_ReloadKeepsEmptyModuleOrder(t *testing.T) {
	f := newFixture(t)
	e := f.write(t, "e.yaml", "# no routes yet\n")
	m := f.write(t, "m.yaml", module("/m1"))
	f.load(t, FileRef("e.yaml"))
	f.load(t, FileRef("m.yaml"))
	f.load(t, static("/z"))

	f.write(t, "m.yaml", module("/m1", "/m2"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: m}))
	f.check(t)

	f.write(t, "e.yaml", module("/e1"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: e}))
	assert.Equal(t, []string{"/e1", "/m1", "/m2", "/z"}, patterns(f.tbl))

	rng, _ := f.ctrl.Loader().Index().RangeOf(m)
	assert.Equal(t, domain.Range{Start: 1, End: 2}, rng)
	f.check(t)
}

func TestController_ReloadAtTailShiftsLaterEmptyModule(t *testing.T) {
	f := newFixture(t)
	m := f.write(t, "m.yaml", module("/m1"))
	e := f.write(t, "e.yaml", "# no routes yet\n")
	f.load(t, FileRef("m.yaml"))
	f.load(t, FileRef("e.yaml"))

	f.write(t, "m.yaml", module("/m1", "/m2"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: m}))
	f.check(t)

	f.write(t, "e.yaml", module("/e1"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: e}))
	assert.Equal(t, []string{"/m1", "/m2", "/e1"}, patterns(f.tbl))
	f.check(t)
}

func TestController_DependencyReloadsOnlyItsRoots(t *testing.T) {
	f := newFixture(t)
	shared := f.write(t, "shared.yaml", module("/shared"))
	f.write(t, "r1.yaml", "include: [shared.yaml]\n"+module("/r1"))
	f.write(t, "r2.yaml", "include: [shared.yaml]\n"+module("/r2"))
	f.write(t, "r3.yaml", module("/r3"))

	r1 := f.load(t, FileRef("r1"))
	r2 := f.load(t, FileRef("r2"))
	f.load(t, FileRef("r3"))

	roots := f.ctrl.Loader().Associator().RootsOf(shared)
	require.Equal(t, []string{r1.Path, r2.Path}, roots)

	f.reset()
	f.write(t, "shared.yaml", module("/shared", "/extra"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: shared}))

	assert.Equal(t, roots, f.reloaded())
	for _, r := range f.results {
		assert.Equal(t, shared, r.Trigger)
		assert.Equal(t, CauseDependency, r.Cause)
	}
	assert.Equal(t, []string{
		"/shared", "/extra", "/r1",
		"/shared", "/extra", "/r2",
		"/r3",
	}, patterns(f.tbl))
	f.check(t)
}

func TestController_NestedDependency(t *testing.T) {
	f := newFixture(t)
	leaf := f.write(t, "lib/leaf.yaml", module("/leaf"))
	f.write(t, "lib/mid.yaml", "include: [leaf.yaml]\n")
	root := f.load(t, FileRef("root.yaml"))
	assert.Nil(t, root)

	f.write(t, "root.yaml", "include: [lib/mid.yaml]\n"+module("/root"))
	root = f.load(t, FileRef("root.yaml"))
	require.NotNil(t, root)
	assert.Equal(t, []string{root.Path}, f.ctrl.Loader().Associator().RootsOf(leaf))

	f.reset()
	f.write(t, "lib/leaf.yaml", module("/leaf2"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: leaf}))
	assert.Equal(t, []string{root.Path}, f.reloaded())
	assert.Equal(t, []string{"/leaf2", "/root"}, patterns(f.tbl))
}

func TestController_RemoveAndCreate(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "zing.yaml", module("/zing"))
	f.load(t, FileRef("zing.yaml"))
	f.load(t, static("/after"))
	assert.Equal(t, 200, get(f.tbl, "/zing").Code)

	require.NoError(t, os.Rename(path, path+".bak"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Removed, Path: path}))
	assert.Equal(t, Removed, f.ctrl.State(path))
	assert.Equal(t, 404, get(f.tbl, "/zing").Code)
	assert.Equal(t, []string{"/after"}, patterns(f.tbl))

	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: path}))
	assert.Equal(t, Removed, f.ctrl.State(path))

	require.NoError(t, os.Rename(path+".bak", path))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Created, Path: path}))
	assert.Equal(t, Registered, f.ctrl.State(path))
	assert.Equal(t, 200, get(f.tbl, "/zing").Code)
	assert.Equal(t, []string{"/after", "/zing"}, patterns(f.tbl))
	f.check(t)
}

func TestController_CreatedWhileRegisteredReloadsInPlace(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "m.yaml", module("/m"))
	f.load(t, FileRef("m.yaml"))
	f.load(t, static("/last"))

	f.write(t, "m.yaml", module("/m", "/m2"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Created, Path: path}))
	assert.Equal(t, []string{"/m", "/m2", "/last"}, patterns(f.tbl))
}

func TestController_DependencyRemovedKeepsRoutes(t *testing.T) {
	f := newFixture(t)
	dep := f.write(t, "dep.yaml", module("/dep"))
	f.write(t, "root.yaml", "include: [dep.yaml]\n")
	f.load(t, FileRef("root.yaml"))

	require.NoError(t, os.Remove(dep))
	f.reset()
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Removed, Path: dep}))
	assert.Empty(t, f.reloaded())
	assert.Equal(t, []string{"/dep"}, patterns(f.tbl))

	f.write(t, "dep.yaml", module("/dep", "/dep2"))
	require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: fswatch.Created, Path: dep}))
	assert.Equal(t, []string{"/dep", "/dep2"}, patterns(f.tbl))
}

func TestController_ReloadFailureLeavesRoutesAbsent(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "m.yaml", module("/m"))
	f.load(t, static("/s"))
	f.load(t, FileRef("m.yaml"))
	f.load(t, static("/c"))

	f.write(t, "m.yaml", "routes:\n  - path: nope\n")
	err := f.ctrl.Handle(fswatch.Event{Kind: fswatch.Changed, Path: path})
	assert.ErrorIs(t, err, domain.ErrReloadFailed)
	assert.ErrorIs(t, err, domain.ErrInvalidRouteFile)

	assert.Equal(t, []string{"/s", "/c"}, patterns(f.tbl))
	assert.Equal(t, Unregistered, f.ctrl.State(path))
	_, ok := f.ctrl.Loader().Index().RangeOf(path)
	assert.False(t, ok)

	f.mu.Lock()
	last := f.results[len(f.results)-1]
	f.mu.Unlock()
	assert.Error(t, last.Err)
}

func TestController_RefreshDisabled(t *testing.T) {
	f := newFixture(t, WithRefresh(false))
	path := f.write(t, "m.yaml", module("/m"))
	f.load(t, FileRef("m.yaml"))

	f.write(t, "m.yaml", module("/changed"))
	for _, kind := range []fswatch.Kind{fswatch.Created, fswatch.Changed, fswatch.Removed} {
		require.NoError(t, f.ctrl.Handle(fswatch.Event{Kind: kind, Path: path}))
	}
	assert.Equal(t, []string{"/m"}, patterns(f.tbl))
}

func TestController_DisabledWatcherCreatesNoGroups(t *testing.T) {
	dir := tempDir(t)
	watcher := fswatch.New(fswatch.Disabled())
	defer watcher.Close()

	loader := NewLoader(routing.NewTable(), WithBaseDir(dir), WithWatcher(watcher))
	ctrl := NewController(loader, WithRefresh(watcher.Enabled()))
	for _, name := range []string{"a", "b", "sub/c", "sub/deeper/d"} {
		writeFile(t, filepath.Join(dir, name+".yaml"), module("/"+name))
		_, err := ctrl.Load(FileRef(name))
		require.NoError(t, err)
	}

	assert.Equal(t, 4, loader.Index().Len())
	assert.Equal(t, 0, watcher.Groups())
}

func TestController_Run(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "m.yaml", module("/m"))
	f.load(t, FileRef("m.yaml"))

	var events []fswatch.Event
	f.ctrl.OnEvent(func(e fswatch.Event) { events = append(events, e) })

	ch := make(chan fswatch.Event, 2)
	f.write(t, "m.yaml", "routes: [")
	ch <- fswatch.Event{Kind: fswatch.Changed, Path: path}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		f.ctrl.Run(ctx, ch)
		close(done)
	}()

	select {
	case err := <-f.ctrl.Fatal():
		assert.ErrorIs(t, err, domain.ErrReloadFailed)
	case <-ctx.Done():
		t.Fatal("timed out waiting for fatal error")
	}
	<-done
	assert.Len(t, events, 1)
}

func TestController_RunStopsOnClosedChannel(t *testing.T) {
	f := newFixture(t)
	ch := make(chan fswatch.Event)
	close(ch)
	f.ctrl.Run(context.Background(), ch)

	select {
	case err := <-f.ctrl.Fatal():
		t.Fatalf("unexpected fatal error: %v", err)
	default:
	}
}
