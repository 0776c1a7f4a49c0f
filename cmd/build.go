package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/conneroisu/devkit/internal/appctx"
	"github.com/conneroisu/devkit/internal/build"
	"github.com/conneroisu/devkit/internal/steps"
)

func newBuilder(app *appctx.Context, mode build.Mode) *build.Builder {
	return build.New(build.Options{
		Config:   app.Config,
		Project:  app.Project,
		Runner:   app.Runner,
		Logger:   app.Logger,
		Observer: app.Console,
		Mode:     mode,
	})
}

func newBuildCommands(c *cli) []*cobra.Command {
	var dev bool

	buildCmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"b"},
		Short:   "Clean, type-check, copy static files and bundle",
		Long: `Run the full build: remove the output directory, type-check with tsc and
svelte-check, copy static files, then bundle the entry point with esbuild.

Plugin projects are installed into $OBSIDIAN_CONFIG_FOLDER/plugins/<id>
when OBSIDIAN_CONFIG_FOLDER is set.

Examples:
  devkit build          # production bundle
  devkit build --dev    # development bundle with inline source maps`,
		Args: cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, app *appctx.Context, _ []string) error {
			mode := build.ModeProduction
			if dev {
				mode = build.ModeDevelopment
			}
			b := newBuilder(app, mode)
			if err := b.Build(ctx); err != nil {
				return err
			}
			app.Console.Success("Build finished in %d ms", b.Metrics().Snapshot().LastDuration.Milliseconds())
			return nil
		}),
	}
	buildCmd.Flags().BoolVar(&dev, "dev", false, "development build: inline source maps and a hot reload marker")

	single := func(use, short, name string, run func(*build.Builder) func(context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: c.run(func(ctx context.Context, app *appctx.Context, _ []string) error {
				b := newBuilder(app, build.ModeProduction)
				return b.Run(ctx, steps.New(name, run(b)))
			}),
		}
	}

	return []*cobra.Command{
		buildCmd,
		single("build:clean", "Remove the output directory", build.StepClean,
			func(b *build.Builder) func(context.Context) error { return b.Clean }),
		single("build:static", "Copy static files, manifest.json and styles.css into the output directory", build.StepStatic,
			func(b *build.Builder) func(context.Context) error { return b.Static }),
		single("build:compile", "Type-check TypeScript and Svelte sources", build.StepCompile,
			func(b *build.Builder) func(context.Context) error { return b.Compile }),
		single("build:compile:typescript", "Type-check with tsc --noEmit", "typescript",
			func(b *build.Builder) func(context.Context) error { return b.CompileTypeScript }),
		single("build:compile:svelte", "Type-check Svelte components with svelte-check", "svelte",
			func(b *build.Builder) func(context.Context) error { return b.CompileSvelte }),
	}
}
