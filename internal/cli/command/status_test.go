package command

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hotroute/internal/server/config"
	"github.com/yndnr/hotroute/internal/server/httpserver"
	"github.com/yndnr/hotroute/internal/telemetry/logger"
)

// startServer runs a real server on a random port with the given modules.
func startServer(t *testing.T, routes ...string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.Refresh = false
	cfg.Routes = routes

	srv, err := httpserver.New(cfg, httpserver.WithLogger(logger.Discard().Slog()))
	if err != nil {
		t.Fatalf("httpserver.New: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv.Addr().String()
}

func TestStatusCommand(t *testing.T) {
	dir := tempDir(t)
	addr := startServer(t, writeFile(t, dir, "routes.yaml", `
routes:
  - method: GET
    path: /zing
    body: zing
  - method: POST
    path: /echo
    body: echo
`))

	stdout, _, err := runApp(t, context.Background(), "status", "--server", addr)
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	for _, want := range []string{"running", "1 modules", "2 handlers", "refresh off", "/zing", "POST", "routes.yaml"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestStatusCommand_JSON(t *testing.T) {
	dir := tempDir(t)
	addr := startServer(t, writeFile(t, dir, "routes.yaml", "routes:\n  - path: /a\n"))

	stdout, _, err := runApp(t, context.Background(), "--output", "json", "status", "-s", "http://"+addr)
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	var got StatusResult
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if got.Health == nil || got.Health.State != "running" {
		t.Errorf("health = %+v", got.Health)
	}
	if got.Routes == nil || got.Routes.Handlers != 1 || got.Routes.Modules[0].Routes[0].Method != "*" {
		t.Errorf("routes = %+v", got.Routes)
	}
}

func TestStatusCommand_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"OK","message":"Success","data":{"status":"unavailable","state":"stopping"}}`))
	}))
	defer srv.Close()

	stdout, _, err := runApp(t, context.Background(), "status", "--server", srv.URL)
	exitErr, ok := err.(cli.ExitCoder)
	if !ok || exitErr.ExitCode() != 1 {
		t.Fatalf("error = %v, want exit code 1", err)
	}
	if !strings.Contains(stdout, "stopping") {
		t.Errorf("output missing state:\n%s", stdout)
	}
}

func TestStatusCommand_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := runApp(t, context.Background(), "status", "--server", url, "--timeout", "1s")
	if err == nil || !strings.Contains(err.Error(), url) {
		t.Errorf("error = %v, want error naming the server", err)
	}
}

func TestStatusCommand_BadCA(t *testing.T) {
	_, _, err := runApp(t, context.Background(), "status", "--ca", "-----BEGIN CERTIFICATE-----\nnot pem\n")
	if err == nil || !strings.Contains(err.Error(), "load ca") {
		t.Errorf("error = %v, want load ca error", err)
	}
}

func TestStatusResult_Table(t *testing.T) {
	if got := (&StatusResult{}).Table(true); len(got.Rows) != 0 || len(got.Headers) != 6 {
		t.Errorf("empty Table() = %+v", got)
	}
}
