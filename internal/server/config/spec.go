package config

import (
	"net"
	"strconv"
	"time"

	"github.com/yndnr/hotroute/internal/core/cors"
	"github.com/yndnr/hotroute/internal/infra/fswatch"
)

// ServerConfig is the root configuration for hotroute.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server" json:"server"`
	TLS       TLSSection       `koanf:"tls" json:"tls"`
	CORS      cors.Config      `koanf:"cors" json:"cors"`
	Routes    []string         `koanf:"routes" json:"routes"`
	Watch     WatchSection     `koanf:"watch" json:"watch"`
	Metrics   MetricsSection   `koanf:"metrics" json:"metrics"`
	RateLimit RateLimitSection `koanf:"ratelimit" json:"ratelimit"`
	Log       LogSection       `koanf:"log" json:"log"`

	// Dir is the directory of the configuration file. Relative route module
	// paths are resolved against it. It is not read from any source.
	Dir string `koanf:"-" json:"dir,omitempty"`
}

// ServerSection configures the listener.
type ServerSection struct {
	IP   string `koanf:"ip" json:"ip"`
	Port int    `koanf:"port" json:"port"`

	// Refresh enables the hot-reload subsystem.
	Refresh bool `koanf:"refresh" json:"refresh"`

	// PoweredBy is the X-Powered-By value. Empty disables the header.
	PoweredBy string `koanf:"poweredby" json:"poweredby"`

	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerSection) Addr() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// TLSSection holds TLS material. Each value is a file path or inline PEM.
type TLSSection struct {
	Certificate string `koanf:"certificate" json:"certificate"`
	Key         string `koanf:"key" json:"key"`
	CA          string `koanf:"ca" json:"ca"`
	Passphrase  string `koanf:"passphrase" json:"passphrase"`
}

// Enabled reports whether the listener serves TLS.
func (t TLSSection) Enabled() bool {
	return t.Certificate != "" && t.Key != ""
}

// WatchSection configures file watching.
type WatchSection struct {
	// Ignore lists doublestar globs of paths never watched. Unset means
	// fswatch.DefaultIgnore; an empty list ignores nothing.
	Ignore []string `koanf:"ignore" json:"ignore"`
}

// IgnorePatterns returns the effective ignore globs.
func (w WatchSection) IgnorePatterns() []string {
	if w.Ignore == nil {
		return fswatch.DefaultIgnore
	}
	return w.Ignore
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled" json:"enabled"`
	Path    string `koanf:"path" json:"path"`
}

// RateLimitSection configures the global request rate limit.
type RateLimitSection struct {
	Enabled bool    `koanf:"enabled" json:"enabled"`
	RPS     float64 `koanf:"rps" json:"rps"`
	Burst   int     `koanf:"burst" json:"burst"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}
