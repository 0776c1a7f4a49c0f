package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/conneroisu/devkit/internal/appctx"
	"github.com/conneroisu/devkit/internal/steps"
	"github.com/conneroisu/devkit/internal/tooling"
)

func newTools(app *appctx.Context) *tooling.Tools {
	return tooling.New(app.Config.Tools, app.Runner, app.Project.Root())
}

func runSteps(ctx context.Context, app *appctx.Context, list ...steps.Step) error {
	return steps.Run(ctx, app.Logger, app.Console, list...).AsError()
}

func newLintCommand(c *cli, fix bool) *cobra.Command {
	use, short := "lint", "Run ESLint and markdownlint"
	if fix {
		use, short = "lint:fix", "Run ESLint and markdownlint, fixing what they can"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, app *appctx.Context, _ []string) error {
			return runSteps(ctx, app, newTools(app).Lint(fix)...)
		}),
	}
}
