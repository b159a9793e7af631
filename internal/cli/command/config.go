package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hotroute/internal/cli/output"
	"github.com/yndnr/hotroute/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration with secrets masked",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
					},
				},
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "FILE",
				Action:    configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sanitized := config.Sanitize(cfg)
	if tableOutput(c) {
		// The nested sections do not fit a table.
		return output.NewFormatter(output.FormatYAML, false).Format(c.App.Writer, sanitized)
	}
	return render(c, sanitized)
}

func configValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("config validate: FILE is required", 2)
	}
	if _, err := config.Load(path, nil); err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
	}
	fmt.Fprintf(c.App.Writer, "%s: configuration is valid\n", path)
	return nil
}
