package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/devkit/internal/appctx"
	"github.com/conneroisu/devkit/internal/build"
	"github.com/conneroisu/devkit/internal/bump"
	"github.com/conneroisu/devkit/internal/changelog"
	"github.com/conneroisu/devkit/internal/config"
	"github.com/conneroisu/devkit/internal/project"
	"github.com/conneroisu/devkit/internal/release"
	"github.com/conneroisu/devkit/internal/steps"
	"github.com/conneroisu/devkit/internal/version"
)

type versionFlags struct {
	format   string
	short    bool
	detailed bool
	dryRun   bool
	yes      bool
}

func newVersionCommand(c *cli) *cobra.Command {
	flags := &versionFlags{}

	cmd := &cobra.Command{
		Use:   "version [major|minor|patch|beta|x.y.z]",
		Short: "Release a new version, or show devkit's own version",
		Long: `Without an argument, print the devkit build information.

With a bump, release the project: check that git and gh are installed and
the working tree is clean, run the configured checks, bump package.json,
the lock files and (for plugins) manifest.json, manifest-beta.json and
versions.json, prepend the changelog and pause for review, then commit,
tag, push and create a GitHub release.

Examples:
  devkit version                   # devkit build information
  devkit version patch             # 1.2.3 -> 1.2.4
  devkit version beta              # 1.2.3 -> 1.2.4-beta.1
  devkit version 2.0.0 --yes       # manual version, no changelog pause
  devkit version minor --dry-run --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.run(func(ctx context.Context, app *appctx.Context, args []string) error {
			if len(args) == 0 {
				return writeBuildInfo(app.Console.Writer(), flags)
			}
			return runRelease(ctx, app, c.opts.In, bump.Classify(args[0]), flags)
		}),
	}

	formatFlag(cmd, &flags.format)
	cmd.Flags().BoolVar(&flags.short, "short", false, "show the short version only")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "show detailed build information")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the release plan without changing anything")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "skip the changelog review pause")

	return cmd
}

func writeBuildInfo(w io.Writer, flags *versionFlags) error {
	info := version.GetBuildInfo()

	switch flags.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	case "text":
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", flags.format)
	}

	switch {
	case flags.short:
		fmt.Fprintln(w, info.Short())
	case flags.detailed:
		fmt.Fprintln(w, info.Detailed())
	default:
		if info.IsRelease() {
			fmt.Fprintf(w, "devkit %s\n", info.Short())
		} else {
			fmt.Fprintf(w, "devkit %s (development build)\n", info.Short())
		}
		fmt.Fprintf(w, "Go: %s\nPlatform: %s\n", info.GoVersion, info.Platform)
	}
	return nil
}

func runRelease(ctx context.Context, app *appctx.Context, in io.Reader, b bump.Bump, flags *versionFlags) error {
	orchestrator := release.New(release.Options{
		Project:   app.Project,
		Runner:    app.Runner,
		Reviewer:  reviewer(app, in, flags.yes),
		Observer:  app.Console,
		Logger:    app.Logger,
		Changelog: app.Config.Release.Changelog,
		OutDir:    app.Config.Build.OutDir,
		Checks:    releaseChecks(app),
	})

	if flags.dryRun {
		plan, err := orchestrator.Plan(ctx, b)
		if err != nil {
			return err
		}
		return plan.Write(app.Console.Writer(), flags.format)
	}

	app.Console.Header("release " + b.String())
	outcome, err := orchestrator.Release(ctx, b)
	for _, name := range outcome.Skipped {
		if project.IsLockFile(name) {
			app.Console.Warn("%s not found, its version was not updated", name)
		}
	}
	if err != nil {
		return err
	}

	app.Console.Success("Released %s (was %s)", outcome.Version, outcome.Current)
	for _, asset := range outcome.Assets {
		app.Console.Info("  %s", asset)
	}
	return nil
}

// reviewer picks how the operator reviews the changelog: --yes skips the
// pause, release.editor opens an editor, otherwise Enter continues.
func reviewer(app *appctx.Context, in io.Reader, yes bool) changelog.Reviewer {
	switch {
	case yes || !app.Config.Release.Review:
		return changelog.ApproveReviewer{}
	case app.Config.Release.Editor != "":
		return changelog.EditorReviewer{Runner: app.Runner, Editor: app.Config.Release.Editor}
	default:
		return changelog.PromptReviewer{In: in, Out: app.Console.Writer()}
	}
}

// releaseChecks turns release.checks into steps named check:<name>.
func releaseChecks(app *appctx.Context) []steps.Step {
	tools := newTools(app)
	list := make([]steps.Step, 0, len(app.Config.Release.Checks))

	for _, name := range app.Config.Release.Checks {
		var run func(context.Context) error
		switch name {
		case config.CheckSpellcheck:
			run = tools.Spellcheck().Run
		case config.CheckLint:
			lint := tools.Lint(false)
			run = func(ctx context.Context) error {
				return steps.Run(ctx, app.Logger, nil, lint...).AsError()
			}
		case config.CheckFormat:
			run = tools.Format(true).Run
		case config.CheckBuild:
			run = newBuilder(app, build.ModeProduction).Build
		default:
			continue
		}
		list = append(list, steps.New("check:"+name, run))
	}
	return list
}
