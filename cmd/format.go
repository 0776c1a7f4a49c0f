package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/conneroisu/devkit/internal/appctx"
)

func newFormatCommand(c *cli, check bool) *cobra.Command {
	use, short := "format", "Format sources with the configured formatter"
	if check {
		use, short = "format:check", "Report unformatted sources without changing them"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, app *appctx.Context, _ []string) error {
			return runSteps(ctx, app, newTools(app).Format(check))
		}),
	}
}
