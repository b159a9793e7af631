package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hotroute/internal/infra/buildinfo"
	"github.com/yndnr/hotroute/internal/infra/shutdown"
	"github.com/yndnr/hotroute/internal/server/config"
	"github.com/yndnr/hotroute/internal/server/httpserver"
	"github.com/yndnr/hotroute/internal/telemetry/logger"
)

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Start the HTTP server",
		ArgsUsage: "[ROUTE_FILE...]",
		Description: "Route files given as arguments replace the routes list of the configuration.\n" +
			"Flags take precedence over HOTROUTE_* environment variables, which take\n" +
			"precedence over the configuration file.",
		Flags:  serveFlags(),
		Action: runServe,
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to configuration file"},
		&cli.StringFlag{Name: "ip", Usage: "Listen address"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port"},
		&cli.BoolFlag{Name: "refresh", Usage: "Reload route modules when their files change"},
		&cli.StringFlag{Name: "poweredby", Usage: "X-Powered-By header value, empty to omit"},
		&cli.StringFlag{Name: "cert", Usage: "TLS certificate (file path or inline PEM)"},
		&cli.StringFlag{Name: "key", Usage: "TLS private key (file path or inline PEM)"},
		&cli.StringFlag{Name: "ca", Usage: "CA bundle for client certificates"},
		&cli.StringFlag{Name: "passphrase", Usage: "Passphrase of an encrypted TLS key"},
		&cli.BoolFlag{Name: "metrics", Usage: "Expose Prometheus metrics"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},
		&cli.StringFlag{Name: "log-format", Usage: "Log format: json, text"},
	}
}

// flagKeys maps serve flags to configuration keys.
var flagKeys = []struct {
	flag string
	key  string
}{
	{"ip", "server.ip"},
	{"port", "server.port"},
	{"refresh", "server.refresh"},
	{"poweredby", "server.poweredby"},
	{"cert", "tls.certificate"},
	{"key", "tls.key"},
	{"ca", "tls.ca"},
	{"passphrase", "tls.passphrase"},
	{"metrics", "metrics.enabled"},
	{"log-level", "log.level"},
	{"log-format", "log.format"},
}

// serveOverrides collects the flags set on the command line as
// configuration overrides.
func serveOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	for _, fk := range flagKeys {
		if c.IsSet(fk.flag) {
			overrides[fk.key] = c.Value(fk.flag)
		}
	}
	if c.NArg() > 0 {
		overrides["routes"] = c.Args().Slice()
	}
	return overrides
}

func runServe(c *cli.Context) error {
	configFile := c.String("config")
	cfg, err := config.Load(configFile, serveOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting hotroute",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	srv, err := httpserver.New(cfg, httpserver.WithLogger(log.Slog()))
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx := c.Context
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return srv.Stop(ctx)
	})

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx, srv.Fatal()); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}
