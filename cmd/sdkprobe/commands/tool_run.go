package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hupe1980/sdkprobe"
	"github.com/hupe1980/sdkprobe/config"
	"github.com/hupe1980/sdkprobe/fixture"
	"github.com/hupe1980/sdkprobe/internal/util"
	"github.com/hupe1980/sdkprobe/tool"
	"github.com/hupe1980/sdkprobe/toolrun"
)

// mistralMaxIterations allows one request, execute, respond round.
const mistralMaxIterations = 2

func toolRunCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "tool-run",
		Usage:     "Runs a weather tool round trip through a provider SDK",
		ArgsUsage: "anthropic|mistral",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "mock",
				Usage: "serve scripted provider responses instead of calling the API",
			},
			&cli.StringFlag{
				Name:  "prompt",
				Usage: "prompt template, {{ .Location }} is replaced by --location",
			},
			&cli.StringFlag{
				Name:  "location",
				Usage: "location asked about",
			},
			&cli.IntFlag{
				Name:  "max-iterations",
				Usage: "model calls allowed (default: 2 for mistral, config value otherwise)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.toolRun(ctx, cmd)
		},
	}
}

func (a *app) toolRun(ctx context.Context, cmd *cli.Command) error {
	provider := strings.ToLower(cmd.Args().First())
	pc, err := a.cfg.Provider(provider)
	if err != nil {
		return err
	}

	location := a.cfg.Tools.Location
	if cmd.IsSet("location") {
		location = cmd.String("location")
	}
	promptTmpl := a.cfg.Tools.Prompt
	if cmd.IsSet("prompt") {
		promptTmpl = cmd.String("prompt")
	}
	prompt, err := util.RenderPrompt(promptTmpl, map[string]any{"Location": location})
	if err != nil {
		return fmt.Errorf("render prompt: %w", err)
	}

	maxIterations := a.cfg.Tools.MaxIterations
	switch {
	case cmd.IsSet("max-iterations"):
		maxIterations = cmd.Int("max-iterations")
	case provider == config.Mistral:
		maxIterations = mistralMaxIterations
	}

	var hc *http.Client
	if cmd.Bool("mock") {
		tr, err := sdkprobe.MockToolTransport(provider, location)
		if err != nil {
			return err
		}
		hc = tr.Client()
		if pc.APIKey == "" {
			pc.APIKey = fixture.PlaceholderAPIKey
		}
	} else if err := a.cfg.RequireAPIKey(provider); err != nil {
		return err
	}

	logger := a.logger.WithComponent("toolrun").WithProvider(provider)
	m, err := sdkprobe.NewModel(provider, pc, hc, logger)
	if err != nil {
		return err
	}

	runner := toolrun.New(m, tool.NewRegistry(tool.NewWeatherTool()), func(o *toolrun.Options) {
		o.MaxIterations = maxIterations
		o.MaxParallel = a.cfg.Tools.MaxParallel
		o.Logger = logger
	})

	res, err := runner.Run(ctx, prompt)
	if err != nil {
		return err
	}
	if res.LimitReached {
		logger.Warn("tool run stopped at the iteration limit", "max_iterations", maxIterations)
	}

	if res.Direct {
		fmt.Fprintln(a.stdout, "Direct response:", res.Text())
	} else {
		fmt.Fprintln(a.stdout, "Final response:", res.Text())
	}
	return nil
}
