package httpserver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/core/reload"
	"github.com/yndnr/hotroute/internal/routing"
	"github.com/yndnr/hotroute/internal/server/config"
)

const (
	waitFor = 5 * time.Second
	tick    = 20 * time.Millisecond
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func writeModule(t *testing.T, path string, paths ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("routes:\n")
	for _, p := range paths {
		fmt.Fprintf(&b, "  - method: GET\n    path: %s\n    body: %q\n", p, p)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(dir string) *config.ServerConfig {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Dir = dir
	return cfg
}

func newServer(t *testing.T, cfg *config.ServerConfig) *Server {
	t.Helper()
	s, err := New(cfg, WithLogger(discardLogger()))
	require.NoError(t, err)
	return s
}

func startServer(t *testing.T, s *Server) string {
	t.Helper()
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		if s.State() == domain.StateRunning {
			ctx, cancel := context.WithTimeout(context.Background(), waitFor)
			defer cancel()
			assert.NoError(t, s.Stop(ctx))
		}
	})
	return "http://" + s.Addr().String()
}

func status(t *testing.T, client *http.Client, url string) int {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Lifecycle(t *testing.T) {
	s := newServer(t, testConfig(tempDir(t)))
	assert.Equal(t, domain.StateStopped, s.State())
	assert.Nil(t, s.Addr())

	started := make(chan net.Addr, 1)
	stopped := make(chan struct{}, 1)
	s.OnStart(func(addr net.Addr) { started <- addr })
	s.OnStop(func() { stopped <- struct{}{} })

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, domain.StateRunning, s.State())

	select {
	case addr := <-started:
		assert.Equal(t, s.Addr().String(), addr.String())
		assert.NotEqual(t, 0, addr.(*net.TCPAddr).Port, "port 0 reports the bound port")
	default:
		t.Fatal("OnStart not called")
	}

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, domain.StateStopped, s.State())

	select {
	case <-stopped:
	default:
		t.Fatal("OnStop not called")
	}

	assert.ErrorIs(t, s.Stop(ctx), domain.ErrInvalidState)
	assert.ErrorIs(t, s.Start(context.Background()), domain.ErrInvalidState, "a server starts once")
}

// TestServer_RenameAwayAndBack registers a module serving GET /zing, renames
// the file away and back, and expects the route to disappear and return.
func TestServer_RenameAwayAndBack(t *testing.T) {
	dir := tempDir(t)
	path := writeModule(t, filepath.Join(dir, "zing.yaml"), "/zing")

	cfg := testConfig(dir)
	cfg.Routes = []string{"zing.yaml"}
	s := newServer(t, cfg)
	base := startServer(t, s)
	client := &http.Client{Timeout: time.Second}

	require.Equal(t, http.StatusOK, status(t, client, base+"/zing"))
	require.Len(t, s.WatchGroups(), 1)

	moved := filepath.Join(dir, "zing.yaml.moved")
	require.NoError(t, os.Rename(path, moved))
	require.Eventually(t, func() bool {
		return status(t, client, base+"/zing") == http.StatusNotFound
	}, waitFor, tick, "route should be removed after rename away")
	assert.Empty(t, s.Modules())

	require.NoError(t, os.Rename(moved, path))
	require.Eventually(t, func() bool {
		return status(t, client, base+"/zing") == http.StatusOK
	}, waitFor, tick, "route should return after rename back")
	assert.Equal(t, reload.Registered, s.Controller().State(path))
}

func TestServer_ReloadKeepsOrder(t *testing.T) {
	dir := tempDir(t)
	path := writeModule(t, filepath.Join(dir, "m.yaml"), "/a")

	s := newServer(t, testConfig(dir))
	_, err := s.CreateRoutes(reload.RegisterFunc(func(r *routing.Registrar) error {
		r.Get("/static", func(w http.ResponseWriter, _ *http.Request) {})
		return nil
	}))
	require.NoError(t, err)
	_, err = s.CreateRoutes(reload.FileRef("m.yaml"))
	require.NoError(t, err)
	_, err = s.CreateRoutes(reload.RegisterFunc(func(r *routing.Registrar) error {
		r.Get("/last", func(w http.ResponseWriter, _ *http.Request) {})
		return nil
	}))
	require.NoError(t, err)

	startServer(t, s)
	writeModule(t, path, "/a", "/b", "/c")

	want := []string{"/static", "/a", "/b", "/c", "/last"}
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, patternsOf(s.Routes()))
	}, waitFor, tick)
}

func patternsOf(routes []routing.Route) []string {
	out := make([]string, len(routes))
	for i, rt := range routes {
		out[i] = rt.Pattern
	}
	return out
}

func TestServer_RefreshDisabled(t *testing.T) {
	dir := tempDir(t)
	cfg := testConfig(dir)
	cfg.Server.Refresh = false
	s := newServer(t, cfg)

	for _, name := range []string{"a.yaml", "b.yaml", "sub/c.yaml"} {
		require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
		writeModule(t, filepath.Join(dir, name), "/"+strings.TrimSuffix(filepath.Base(name), ".yaml"))
		m, err := s.CreateRoutes(reload.FileRef(name))
		require.NoError(t, err)
		require.NotNil(t, m)
	}

	assert.Empty(t, s.WatchGroups())
	assert.Len(t, s.Modules(), 3)
	assert.False(t, s.Refresh())
}

func TestServer_ReloadFailureIsFatal(t *testing.T) {
	dir := tempDir(t)
	path := writeModule(t, filepath.Join(dir, "m.yaml"), "/a")

	cfg := testConfig(dir)
	cfg.Routes = []string{path}
	s := newServer(t, cfg)
	startServer(t, s)

	require.NoError(t, os.WriteFile(path, []byte("routes: [\n"), 0o644))

	select {
	case err := <-s.Fatal():
		assert.ErrorIs(t, err, domain.ErrReloadFailed)
	case <-time.After(waitFor):
		t.Fatal("no fatal error after a failed reload")
	}
	assert.Empty(t, s.Routes(), "routes of a failed module stay absent")
}

func TestServer_StartFailsOnInvalidModule(t *testing.T) {
	dir := tempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("routes:\n  - path: nope\n"), 0o644))

	cfg := testConfig(dir)
	cfg.Routes = []string{"bad.yaml"}
	s := newServer(t, cfg)

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidRouteFile)
	assert.Equal(t, domain.StateStopped, s.State())
	assert.Nil(t, s.Addr())
}

func TestServer_DuplicateRouteEntryLoadsOnce(t *testing.T) {
	dir := tempDir(t)
	writeModule(t, filepath.Join(dir, "m.yaml"), "/a", "/b")

	cfg := testConfig(dir)
	cfg.Routes = []string{"m.yaml", "m.yaml"}
	s := newServer(t, cfg)
	startServer(t, s)

	assert.Equal(t, []string{"/a", "/b"}, patternsOf(s.Routes()))
	require.Len(t, s.Modules(), 1)
	assert.Equal(t, domain.Range{Start: 0, End: 1}, s.Modules()[0].Range)
}

func TestServer_MissingModuleIsSkipped(t *testing.T) {
	cfg := testConfig(tempDir(t))
	cfg.Routes = []string{"missing.yaml"}
	s := newServer(t, cfg)
	startServer(t, s)

	assert.Empty(t, s.Modules())
}

func TestServer_Introspection(t *testing.T) {
	dir := tempDir(t)
	writeModule(t, filepath.Join(dir, "m.yaml"), "/a", "/b")
	s := newServer(t, testConfig(dir))
	_, err := s.CreateRoutes(reload.FileRef("m.yaml"))
	require.NoError(t, err)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/_hotroute/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "not running yet")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/_hotroute/routes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, filepath.Join(dir, "m.yaml"))
	assert.Contains(t, body, `"pattern":"/b"`)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hotroute_reloads_total{result="success",trigger="initial"} 1`)
	assert.Contains(t, rec.Body.String(), "hotroute_handlers 2")
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig(tempDir(t))
	cfg.Metrics.Enabled = false
	s := newServer(t, cfg)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "falls through to the routing table")
}

func TestServer_PoweredByAndCORS(t *testing.T) {
	dir := tempDir(t)
	writeModule(t, filepath.Join(dir, "m.yaml"), "/a")

	cfg := testConfig(dir)
	cfg.Server.PoweredBy = "hotroute"
	cfg.CORS.Whitelist = []string{"a.com"}
	cfg.CORS.AllowedMethods = []string{"POST"}
	s := newServer(t, cfg)
	_, err := s.CreateRoutes(reload.FileRef("m.yaml"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/a", nil)
	req.Header.Set("Origin", "a.com")
	rec := serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "hotroute", rec.Header().Get("X-Powered-By"))

	req = httptest.NewRequest(http.MethodOptions, "/a", nil)
	req.Header.Set("Origin", "a.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = serve(s, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/a", nil)
	req.Header.Set("Origin", "b.com")
	rec = serve(s, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig(tempDir(t))
	cfg.RateLimit = config.RateLimitSection{Enabled: true, RPS: 0.001, Burst: 1}
	s := newServer(t, cfg)

	first := serve(s, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusNotFound, first.Code)
	second := serve(s, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	health := serve(s, httptest.NewRequest(http.MethodGet, "/_hotroute/routes", nil))
	assert.Equal(t, http.StatusOK, health.Code, "introspection is not rate limited")
}

func TestNew_TLSMaterialFailure(t *testing.T) {
	cfg := testConfig(tempDir(t))
	cfg.TLS.Certificate = "/nonexistent/cert.pem"
	cfg.TLS.Key = "/nonexistent/key.pem"

	_, err := New(cfg, WithLogger(discardLogger()))
	assert.ErrorIs(t, err, domain.ErrTLSMaterial)
}

func TestServer_TLS(t *testing.T) {
	dir := tempDir(t)
	writeModule(t, filepath.Join(dir, "m.yaml"), "/secure")

	cfg := testConfig(dir)
	cfg.TLS.Certificate, cfg.TLS.Key = selfSigned(t)
	cfg.Routes = []string{"m.yaml"}
	s := newServer(t, cfg)
	base := startServer(t, s)

	client := &http.Client{
		Timeout: time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed test certificate
		},
	}
	assert.Equal(t, http.StatusOK, status(t, client, strings.Replace(base, "http://", "https://", 1)+"/secure"))
}

// selfSigned returns an inline PEM certificate and key for 127.0.0.1.
func selfSigned(t *testing.T) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return string(certPEM), string(keyPEM)
}
