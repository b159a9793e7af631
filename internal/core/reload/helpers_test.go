package reload

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/hotroute/internal/routing"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

// module renders a route file with one GET route per path.
func module(paths ...string) string {
	var b strings.Builder
	b.WriteString("routes:\n")
	for _, p := range paths {
		fmt.Fprintf(&b, "  - method: GET\n    path: %s\n    body: %q\n", p, p)
	}
	return b.String()
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func patterns(tbl *routing.Table) []string {
	routes := tbl.Snapshot()
	out := make([]string, len(routes))
	for i, rt := range routes {
		out[i] = rt.Pattern
	}
	return out
}

func get(tbl *routing.Table, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	tbl.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func static(paths ...string) RegisterFunc {
	return func(r *routing.Registrar) error {
		for _, p := range paths {
			p := p
			r.Get(p, func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(p))
			})
		}
		return nil
	}
}

// recordingWatcher collects the files registered for watching.
type recordingWatcher struct {
	mu    sync.Mutex
	files map[string]int
}

func newRecordingWatcher() *recordingWatcher {
	return &recordingWatcher{files: make(map[string]int)}
}

func (w *recordingWatcher) Add(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path]++
}

func (w *recordingWatcher) has(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path] > 0
}

var _ Watcher = (*recordingWatcher)(nil)
