package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hotroute/internal/cli/output"
	"github.com/yndnr/hotroute/internal/core/domain"
	"github.com/yndnr/hotroute/internal/core/reload"
	"github.com/yndnr/hotroute/internal/routing"
	"github.com/yndnr/hotroute/internal/telemetry/logger"
)

// CheckCommand returns the check command.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Parse route modules and list the routes they register",
		ArgsUsage: "ROUTE_FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "base-dir",
				Usage: "Directory relative route files are resolved against (default: working directory)",
			},
		},
		Action: runCheck,
	}
}

// CheckResult is the outcome of checking a set of route modules.
type CheckResult struct {
	Handlers int             `json:"handlers"`
	Modules  []CheckedModule `json:"modules"`
}

// CheckedModule is one checked route module.
type CheckedModule struct {
	Ref          string         `json:"ref"`
	Path         string         `json:"path,omitempty"`
	Range        *domain.Range  `json:"range,omitempty"`
	Fingerprint  string         `json:"fingerprint,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Routes       []CheckedRoute `json:"routes,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// CheckedRoute is one handler registered by a module.
type CheckedRoute struct {
	Index   int    `json:"index"`
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
	Source  string `json:"source"`
}

// Failed returns the number of modules that did not load.
func (r *CheckResult) Failed() int {
	n := 0
	for _, m := range r.Modules {
		if m.Error != "" {
			n++
		}
	}
	return n
}

// Table lists one row per route, and one row per module that failed.
func (r *CheckResult) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"MODULE", "INDEX", "METHOD", "PATTERN"}}
	if wide {
		t.Headers = append(t.Headers, "SOURCE", "DEPENDENCIES")
	}
	for _, m := range r.Modules {
		name := m.Ref
		if m.Error != "" {
			row := []string{name, "-", "-", "error: " + m.Error}
			if wide {
				row = append(row, "-", "-")
			}
			t.AddRow(row...)
			continue
		}
		if len(m.Routes) == 0 {
			row := []string{name, "-", "-", "(no routes)"}
			if wide {
				row = append(row, "-", dependencyList(m.Dependencies))
			}
			t.AddRow(row...)
		}
		for _, rt := range m.Routes {
			row := []string{name, strconv.Itoa(rt.Index), rt.Method, rt.Pattern}
			if wide {
				row = append(row, rt.Source, dependencyList(m.Dependencies))
			}
			t.AddRow(row...)
		}
	}
	return t
}

func dependencyList(deps []string) string {
	if len(deps) == 0 {
		return "-"
	}
	return strings.Join(deps, ",")
}

// Check loads every ref, in order, into a scratch handler list the same
// way the server does at startup.
func Check(baseDir string, refs []string) *CheckResult {
	table := routing.NewTable()
	loader := reload.NewLoader(table,
		reload.WithBaseDir(baseDir),
		reload.WithLoaderLogger(logger.Discard().Slog()),
	)

	result := &CheckResult{}
	loaded := make([]*domain.RouteModule, 0, len(refs))
	for _, ref := range refs {
		cm := CheckedModule{Ref: ref}
		var m *domain.RouteModule
		if _, ok := loader.Resolve(ref); !ok {
			cm.Error = domain.ErrRouteFileNotFound.Message
		} else if loadedModule, err := loader.Load(reload.FileRef(ref)); err != nil {
			cm.Error = err.Error()
		} else {
			m = loadedModule
		}
		result.Modules = append(result.Modules, cm)
		loaded = append(loaded, m)
	}

	// A file given twice is reloaded in place, so ranges are read back from
	// the index once everything is loaded.
	routes := table.Snapshot()
	for i, m := range loaded {
		if m == nil {
			continue
		}
		if current, ok := loader.Index().Get(m.Path); ok {
			m = current
		}
		cm := &result.Modules[i]
		rng := m.Range
		cm.Path = m.Path
		cm.Range = &rng
		cm.Fingerprint = m.Fingerprint
		cm.Dependencies = m.Dependencies
		for j := rng.Start; j <= rng.End && j < len(routes); j++ {
			method := routes[j].Method
			if method == "" {
				method = "*"
			}
			cm.Routes = append(cm.Routes, CheckedRoute{
				Index:   j,
				Method:  method,
				Pattern: routes[j].Pattern,
				Source:  routes[j].Source,
			})
		}
	}
	result.Handlers = len(routes)
	return result
}

func runCheck(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("check: at least one ROUTE_FILE is required", 2)
	}

	baseDir := c.String("base-dir")
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		baseDir = wd
	}

	result := Check(baseDir, c.Args().Slice())
	if err := render(c, result); err != nil {
		return err
	}
	if n := result.Failed(); n > 0 {
		return cli.Exit(fmt.Sprintf("check: %d of %d route modules failed", n, len(result.Modules)), 1)
	}
	return nil
}
