package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/yndnr/hotroute/internal/telemetry/logger"
)

// ReservedPrefix is the path prefix of the built-in introspection endpoints.
const ReservedPrefix = "/_hotroute/"

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyTLS(&cfg.TLS); err != nil {
		return err
	}
	if cfg.CORS.MaxAge < 0 {
		return errors.New("cors.maxage must not be negative")
	}
	for _, pattern := range cfg.Watch.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("watch.ignore: invalid pattern %q", pattern)
		}
	}
	if err := verifyMetrics(&cfg.Metrics); err != nil {
		return err
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RPS <= 0 {
			return errors.New("ratelimit.rps must be positive")
		}
		if cfg.RateLimit.Burst < 1 {
			return errors.New("ratelimit.burst must be at least 1")
		}
	}
	return verifyLog(&cfg.Log)
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "", logger.FormatJSON, logger.FormatText, "console":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Port)
	}
	if cfg.IP != "" && cfg.IP != "localhost" && net.ParseIP(cfg.IP) == nil {
		return fmt.Errorf("server.ip %q is not an IP address", cfg.IP)
	}
	if cfg.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must not be negative")
	}
	return nil
}

func verifyTLS(cfg *TLSSection) error {
	switch {
	case cfg.Certificate != "" && cfg.Key == "":
		return errors.New("tls.key is required when tls.certificate is set")
	case cfg.Key != "" && cfg.Certificate == "":
		return errors.New("tls.certificate is required when tls.key is set")
	case cfg.Passphrase != "" && cfg.Key == "":
		return errors.New("tls.passphrase requires tls.key")
	case cfg.CA != "" && !cfg.Enabled():
		return errors.New("tls.ca requires tls.certificate and tls.key")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if !cfg.Enabled {
		return nil
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", cfg.Path)
	}
	if strings.HasPrefix(cfg.Path, ReservedPrefix) {
		return fmt.Errorf("metrics.path %q uses the reserved prefix %s", cfg.Path, ReservedPrefix)
	}
	return nil
}
