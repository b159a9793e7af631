package command

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hotroute/internal/cli/connection"
	"github.com/yndnr/hotroute/internal/cli/output"
	"github.com/yndnr/hotroute/internal/infra/tlsroots"
	"github.com/yndnr/hotroute/internal/server/httpserver/handler"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the health and handler list of a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Server address (e.g., localhost:8080 or https://host:8443)",
				Value:   "localhost:8080",
			},
			&cli.StringFlag{
				Name:  "ca",
				Usage: "CA bundle used to verify an https server (file path or inline PEM)",
			},
			&cli.BoolFlag{
				Name:  "insecure",
				Usage: "Skip TLS certificate verification",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: connection.DefaultTimeout,
			},
		},
		Action: runStatus,
	}
}

// StatusResult is what status reports about a server.
type StatusResult struct {
	Server string                  `json:"server"`
	Health *handler.HealthResponse `json:"health"`
	Routes *handler.RoutesResponse `json:"routes,omitempty"`
}

// Table lists the handler list grouped by module.
func (r *StatusResult) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"INDEX", "METHOD", "PATTERN", "MODULE"}}
	if wide {
		t.Headers = append(t.Headers, "RANGE", "LOADED")
	}
	if r.Routes == nil {
		return t
	}
	for _, m := range r.Routes.Modules {
		for _, rt := range m.Routes {
			row := []string{strconv.Itoa(rt.Index), rt.Method, rt.Pattern, m.Path}
			if wide {
				row = append(row, m.Range.String(), m.LoadedAt.Format(time.RFC3339))
			}
			t.AddRow(row...)
		}
	}
	return t
}

func statusClient(c *cli.Context) (*connection.HTTPClient, error) {
	opts := []connection.ClientOption{connection.WithTimeout(c.Duration("timeout"))}

	var tlsCfg *tls.Config
	if ca := c.String("ca"); ca != "" {
		pool, err := tlsroots.LoadPool(ca)
		if err != nil {
			return nil, fmt.Errorf("load ca: %w", err)
		}
		tlsCfg = &tls.Config{RootCAs: pool.Pool(), MinVersion: tls.VersionTLS12}
	}
	if c.Bool("insecure") {
		if tlsCfg == nil {
			tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		tlsCfg.InsecureSkipVerify = true //nolint:gosec // opt-in flag
	}
	if tlsCfg != nil {
		opts = append(opts, connection.WithTLSConfig(tlsCfg))
	}
	return connection.NewHTTPClient(c.String("server"), opts...), nil
}

func runStatus(c *cli.Context) error {
	client, err := statusClient(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	health, healthErr := client.Health(ctx)
	if health == nil {
		return fmt.Errorf("server %s: %w", client.BaseURL(), healthErr)
	}

	result := &StatusResult{Server: client.BaseURL(), Health: health}
	if healthErr == nil {
		routes, err := client.Routes(ctx)
		if err != nil {
			return fmt.Errorf("server %s: %w", client.BaseURL(), err)
		}
		result.Routes = routes
	}

	if tableOutput(c) {
		refresh := "off"
		if health.Refresh {
			refresh = "on"
		}
		fmt.Fprintf(c.App.Writer, "%s: %s (version %s, %d modules, %d handlers, refresh %s)\n\n",
			result.Server, health.State, health.Version, health.Modules, health.Handlers, refresh)
	}
	if err := render(c, result); err != nil {
		return err
	}
	if healthErr != nil {
		return cli.Exit(fmt.Sprintf("server %s is %s", result.Server, health.State), 1)
	}
	return nil
}
