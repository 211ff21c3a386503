package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hupe1980/sdkprobe"
	"github.com/hupe1980/sdkprobe/check"
)

const allProbes = "all"

func forwardCompatCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "forward-compat",
		Usage:     "Runs the forward-compatibility probes against mocked provider responses",
		ArgsUsage: "[anthropic|mistral|all]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-concurrent",
				Usage: "probes running at once with all (0 = no limit)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.forwardCompat(ctx, cmd)
		},
	}
}

func (a *app) forwardCompat(ctx context.Context, cmd *cli.Command) error {
	target := allProbes
	if cmd.Args().Present() {
		target = strings.ToLower(cmd.Args().First())
	}

	suite := sdkprobe.New(func(o *sdkprobe.Options) {
		o.Logger = a.logger.WithComponent("compat")
		o.MaxConcurrent = cmd.Int("max-concurrent")
	})

	var (
		reports []*check.Report
		runErr  error
	)
	if target == allProbes {
		reports, runErr = suite.RunAll(ctx)
	} else {
		report, err := suite.Run(ctx, target)
		if errors.Is(err, sdkprobe.ErrUnknownProbe) {
			return fmt.Errorf("%w (available: %s, %s)", err, strings.Join(suite.Names(), ", "), allProbes)
		}
		reports, runErr = []*check.Report{report}, err
	}

	printed := make([]*check.Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			printed = append(printed, r)
		}
	}
	if err := check.NewPrinter(a.stdout).PrintAll(printed...); err != nil {
		return err
	}

	return resultErr(printed, runErr)
}

// resultErr joins the report outcome with run errors no report recorded.
func resultErr(reports []*check.Report, runErr error) error {
	errs := []error{check.Err(reports...)}
	for _, err := range splitJoined(runErr) {
		if !recorded(reports, err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func splitJoined(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func recorded(reports []*check.Report, err error) bool {
	for _, r := range reports {
		if r != nil && r.Err != nil && errors.Is(err, r.Err) {
			return true
		}
	}
	return false
}
