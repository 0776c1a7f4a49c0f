package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/devkit/internal/appctx"
	"github.com/conneroisu/devkit/internal/config"
	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/runner"
	"github.com/conneroisu/devkit/internal/steps"
)

// BetaTag is the npm dist-tag for prerelease publishes.
const BetaTag = "beta"

func newPublishCommand(c *cli) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "publish [beta]",
		Short: "Publish the package to the npm registry",
		Long: `Publish the package with npm. The registry token is read from NPM_TOKEN
and handed to npm as NODE_AUTH_TOKEN. "beta" publishes under the beta
dist-tag instead of latest.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{BetaTag},
		RunE: c.run(func(ctx context.Context, app *appctx.Context, args []string) error {
			beta := false
			if len(args) == 1 {
				if args[0] != BetaTag {
					return devkiterrors.NewValidationError(devkiterrors.ErrCodeInvalidArgument,
						fmt.Sprintf("unknown publish channel %q: only %q is supported", args[0], BetaTag))
				}
				beta = true
			}
			return runPublish(ctx, app, beta, dryRun)
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "pass --dry-run to npm publish")
	return cmd
}

func runPublish(ctx context.Context, app *appctx.Context, beta, dryRun bool) error {
	var extra []string
	if beta {
		extra = append(extra, "--tag", BetaTag)
	}
	if dryRun {
		extra = append(extra, "--dry-run")
	}

	publish, err := runner.Parse(app.Config.Tools.Npm, append([]string{"publish"}, extra...)...)
	if err != nil {
		return err
	}
	token := app.Config.Publish.Token

	err = runSteps(ctx, app,
		steps.New("validate", func(context.Context) error {
			if token == "" {
				return devkiterrors.NewPreconditionError(devkiterrors.ErrCodeTokenMissing,
					fmt.Sprintf("%s is not set; cannot authenticate with the registry", config.EnvRegistryToken))
			}
			if _, err := app.Runner.LookPath(publish.Name); err != nil {
				return devkiterrors.NewPreconditionError(devkiterrors.ErrCodeToolMissing,
					fmt.Sprintf("%s was not found on PATH", publish.Name))
			}
			return nil
		}),
		steps.New("publish", func(ctx context.Context) error {
			publish.Dir = app.Project.Root()
			publish.Env = []string{"NODE_AUTH_TOKEN=" + token}
			publish.Stream = true
			_, err := app.Runner.Run(ctx, publish)
			return err
		}),
	)
	if err != nil {
		return err
	}

	tag := "latest"
	if beta {
		tag = BetaTag
	}
	if pkg, err := app.Project.Package(); err == nil {
		app.Console.Success("Published %s@%s (%s)", pkg.Name, pkg.Version, tag)
	} else {
		app.Console.Success("Published (%s)", tag)
	}
	return nil
}
