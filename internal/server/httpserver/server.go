package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/yndnr/hotroute/internal/core/cors"
	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/core/reload"
	"github.com/yndnr/hotroute/internal/infra/fswatch"
	"github.com/yndnr/hotroute/internal/infra/tlsroots"
	"github.com/yndnr/hotroute/internal/routefile"
	"github.com/yndnr/hotroute/internal/routing"
	"github.com/yndnr/hotroute/internal/server/config"
	"github.com/yndnr/hotroute/internal/server/httpserver/handler"
	"github.com/yndnr/hotroute/internal/telemetry/metric"
)

// Server is a hotroute HTTP(S) server. A Server can be started once.
type Server struct {
	cfg       *config.ServerConfig
	logger    *slog.Logger
	metrics   *metric.Registry
	tlsConfig *tls.Config

	table      *routing.Table
	watcher    *fswatch.Coordinator
	loader     *reload.Loader
	controller *reload.Controller
	handler    http.Handler

	state atomic.Int32
	fatal chan error

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	used       bool
	onStart    []func(net.Addr)
	onStop     []func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics registry. Without it a registry is created
// when metrics are enabled in the configuration.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a server for cfg. TLS material is loaded here; failing to
// load it is returned as ErrTLSMaterial.
func New(cfg *config.ServerConfig, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: slog.Default(),
		fatal:  make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil && cfg.Metrics.Enabled {
		s.metrics = metric.NewRegistry()
	}

	if cfg.TLS.Enabled() {
		tlsConfig, err := tlsroots.ServerConfig(tlsroots.Material{
			Certificate: cfg.TLS.Certificate,
			Key:         cfg.TLS.Key,
			CA:          cfg.TLS.CA,
			Passphrase:  cfg.TLS.Passphrase,
		})
		if err != nil {
			return nil, domain.ErrTLSMaterial.WithCause(err)
		}
		s.tlsConfig = tlsConfig
	}

	watchOpts := []fswatch.Option{
		fswatch.WithLogger(s.logger),
		fswatch.WithIgnore(cfg.Watch.IgnorePatterns()...),
	}
	if !cfg.Server.Refresh {
		watchOpts = append(watchOpts, fswatch.Disabled())
	}
	s.watcher = fswatch.New(watchOpts...)

	s.table = routing.NewTable()
	s.loader = reload.NewLoader(s.table,
		reload.WithBaseDir(cfg.Dir),
		reload.WithWatcher(s.watcher),
		reload.WithSource(routefile.NewSource()),
		reload.WithLoaderLogger(s.logger),
	)
	s.controller = reload.NewController(s.loader,
		reload.WithRefresh(cfg.Server.Refresh),
		reload.WithLogger(s.logger),
	)
	if s.metrics != nil {
		s.controller.OnReload(s.observeReload)
		s.controller.OnEvent(func(e fswatch.Event) {
			s.metrics.WatchEventsTotal.WithLabelValues(e.Kind.String()).Inc()
		})
	}

	s.handler = s.routes()
	return s, nil
}

// routes builds the request pipeline.
func (s *Server) routes() http.Handler {
	var app http.Handler = s.table
	if s.cfg.CORS.Active() {
		app = cors.Middleware(s.cfg.CORS)(app)
	}
	if rl := s.cfg.RateLimit; rl.Enabled {
		app = RateLimit(rl.RPS, rl.Burst)(app)
	}

	introspection := handler.New(s, s.logger)
	var metrics http.Handler
	if s.metrics != nil {
		metrics = s.metrics.Handler()
	}
	metricsPath := s.cfg.Metrics.Path

	dispatch := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, handler.Prefix):
			introspection.ServeHTTP(w, r)
		case metrics != nil && r.URL.Path == metricsPath:
			metrics.ServeHTTP(w, r)
		default:
			app.ServeHTTP(w, r)
		}
	})

	return Chain(dispatch,
		Recover(s.logger),
		RequestID(),
		Audit(s.logger, s.metrics),
		PoweredBy(s.cfg.Server.PoweredBy),
	)
}

func (s *Server) observeReload(r reload.ReloadResult) {
	s.metrics.ObserveReload(string(r.Cause), r.Err, r.Duration)
	s.metrics.RouteModules.Set(float64(s.loader.Index().Len()))
	s.metrics.Handlers.Set(float64(s.table.Len()))
	s.metrics.WatchGroups.Set(float64(s.watcher.Groups()))
}

// CreateRoutes registers a route module. A FileRef is resolved against the
// configuration directory and then the working directory; a path that
// resolves to no file is a no-op returning a nil module. A RegisterFunc is
// run immediately and is never reloaded.
func (s *Server) CreateRoutes(ref reload.ModuleRef) (*domain.RouteModule, error) {
	return s.controller.Load(ref)
}

// OnStart registers fn to be called with the bound address once the server
// is running.
func (s *Server) OnStart(fn func(net.Addr)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStart = append(s.onStart, fn)
}

// OnStop registers fn to be called once the server has stopped.
func (s *Server) OnStop(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStop = append(s.onStop, fn)
}

// Start loads the configured route modules, binds the listener and starts
// serving and reloading in the background. It returns once the listener is
// bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.used || !s.state.CompareAndSwap(int32(domain.StateStopped), int32(domain.StateStarting)) {
		s.mu.Unlock()
		return domain.ErrInvalidState.WithDetails("start: server is " + s.State().String())
	}
	s.used = true
	s.mu.Unlock()

	if err := s.start(ctx); err != nil {
		_ = s.watcher.Close()
		s.state.Store(int32(domain.StateStopped))
		return err
	}

	s.mu.Lock()
	addr := s.listener.Addr()
	callbacks := append([]func(net.Addr){}, s.onStart...)
	s.mu.Unlock()

	s.state.Store(int32(domain.StateRunning))
	s.logger.Info("server started",
		"addr", addr.String(),
		"tls", s.tlsConfig != nil,
		"refresh", s.cfg.Server.Refresh,
		"modules", s.loader.Index().Len(),
		"handlers", s.table.Len(),
	)
	for _, fn := range callbacks {
		fn(addr)
	}
	return nil
}

func (s *Server) start(ctx context.Context) error {
	for _, ref := range s.cfg.Routes {
		m, err := s.CreateRoutes(reload.FileRef(ref))
		if err != nil {
			return fmt.Errorf("load routes %s: %w", ref, err)
		}
		if m == nil {
			s.logger.Warn("route module not found, skipping", "ref", ref)
		}
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr(), err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	s.httpServer = httpServer
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(fmt.Errorf("serve: %w", err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.controller.Run(runCtx, s.watcher.Events())
	}()
	go func() {
		defer s.wg.Done()
		select {
		case err := <-s.controller.Fatal():
			s.fail(err)
		case <-runCtx.Done():
		}
	}()
	return nil
}

// Stop closes the watchers, stops accepting requests and waits for active
// ones until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(domain.StateRunning), int32(domain.StateStopping)) {
		return domain.ErrInvalidState.WithDetails("stop: server is " + s.State().String())
	}

	s.mu.Lock()
	httpServer, cancel := s.httpServer, s.cancel
	s.mu.Unlock()

	cancel()
	werr := s.watcher.Close()
	serr := httpServer.Shutdown(ctx)
	s.wg.Wait()

	s.state.Store(int32(domain.StateStopped))
	s.logger.Info("server stopped")

	s.mu.Lock()
	callbacks := append([]func(){}, s.onStop...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	return errors.Join(serr, werr)
}

func (s *Server) fail(err error) {
	select {
	case s.fatal <- err:
	default:
	}
}

// Fatal returns the channel reload and serve failures are delivered on.
// The server keeps running; the caller is expected to stop it and exit.
func (s *Server) Fatal() <-chan error {
	return s.fatal
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler returns the request pipeline.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// State returns the lifecycle state.
func (s *Server) State() domain.State {
	return domain.State(s.state.Load())
}

// Refresh reports whether file changes are applied.
func (s *Server) Refresh() bool {
	return s.cfg.Server.Refresh
}

// Modules returns the loaded route modules ordered by position.
func (s *Server) Modules() []*domain.RouteModule {
	return s.loader.Index().Modules()
}

// Routes returns the published handler list.
func (s *Server) Routes() []routing.Route {
	return s.table.Snapshot()
}

// WatchGroups returns the watched directories.
func (s *Server) WatchGroups() []fswatch.GroupInfo {
	return s.watcher.Snapshot()
}

// Controller returns the reload controller.
func (s *Server) Controller() *reload.Controller {
	return s.controller
}
