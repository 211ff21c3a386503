// Package commands implements the sdkprobe command line.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/hupe1980/sdkprobe/config"
	"github.com/hupe1980/sdkprobe/logging"
)

// app carries what Before prepares for the subcommands.
type app struct {
	cfg    *config.Config
	logger *logging.ProbeLogger
	stdout io.Writer
}

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout}

	cmd := &cli.Command{
		Name:      "sdkprobe",
		Usage:     "Forward-compatibility and tool calling probes for LLM provider SDKs",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "optional TOML config file",
				Sources: cli.EnvVars("SDKPROBE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error), overrides the config",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json), overrides the config",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, a.setup(cmd, stderr)
		},
		Commands: []*cli.Command{
			forwardCompatCommand(a),
			toolRunCommand(a),
		},
	}

	return cmd.Run(ctx, args)
}

func (a *app) setup(cmd *cli.Command, stderr io.Writer) error {
	overrides := map[string]any{}
	if cmd.IsSet("log-level") {
		overrides["log.level"] = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		overrides["log.format"] = cmd.String("log-format")
	}

	cfg, err := config.Load(func(o *config.LoadOptions) {
		o.File = cmd.String("config")
		o.Overrides = overrides
	})
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	a.cfg = cfg
	a.logger = logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    stderr,
		Component: "cli",
	})
	return nil
}
