package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/conneroisu/devkit/internal/appctx"
)

func newSpellcheckCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "spellcheck",
		Short: "Spellcheck the project with cspell",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, app *appctx.Context, _ []string) error {
			return runSteps(ctx, app, newTools(app).Spellcheck())
		}),
	}
}
