// Package cmd provides the devkit command line.
//
// Configuration is read, from highest to lowest priority, from:
//  1. command-line flags (--config, --log-level, --debug)
//  2. DEVKIT_CONFIG_FILE: path to a configuration file
//  3. DEVKIT_<SECTION>_<OPTION> environment variables (DEVKIT_BUILD_OUT_DIR)
//  4. .devkit.yml in the project directory
//
// OBSIDIAN_CONFIG_FOLDER and NPM_TOKEN keep their conventional names.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/devkit/internal/appctx"
	"github.com/conneroisu/devkit/internal/config"
	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/runner"
)

// ConfigFileEnv names the configuration file when --config is not given.
const ConfigFileEnv = "DEVKIT_CONFIG_FILE"

const defaultConfigName = ".devkit.yml"

// Options replaces process-wide dependencies, for tests.
type Options struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Fs     afero.Fs
	Runner runner.Runner
	Lookup func(string) (string, bool)
}

type cli struct {
	opts    Options
	v       *viper.Viper
	cfgFile string
	dir     string
	debug   bool
	app     *appctx.Context

	// missingConfig is the default config path when no file was found.
	missingConfig string
}

// Execute runs the devkit command line. The error has already been
// printed when it is returned.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(Options{})
	err := root.ExecuteContext(ctx)
	if err != nil {
		printError(root.ErrOrStderr(), err)
	}
	return err
}

// NewRootCommand builds the command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}

	c := &cli{opts: opts, v: viper.New()}

	root := &cobra.Command{
		Use:   "devkit",
		Short: "Build, check and release Obsidian plugins and npm packages",
		Long: `devkit bundles TypeScript sources with esbuild, runs the project's lint,
format and spellcheck tools, and releases new versions: it bumps every
version file, writes the changelog, tags, pushes and publishes a GitHub
release.

Quick Start:
  devkit build                 Production build
  devkit dev                   Development build, rebuilt on every change
  devkit lint                  ESLint and markdownlint
  devkit version patch         Release the next patch version
  devkit version beta --dry-run
  devkit publish               Publish the package to npm`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
	}
	if opts.Out != nil {
		root.SetOut(opts.Out)
	}
	if opts.Err != nil {
		root.SetErr(opts.Err)
	}
	root.SetIn(opts.In)

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is .devkit.yml, can also use "+ConfigFileEnv+")")
	flags.StringVarP(&c.dir, "dir", "C", "", "project directory (default is the working directory)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&c.debug, "debug", false, "debug logging with source locations")
	addFlagValidation(flags, "log-level", validateLogLevel)
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(newBuildCommands(c)...)
	root.AddCommand(
		newDevCommand(c),
		newLintCommand(c, false),
		newLintCommand(c, true),
		newFormatCommand(c, false),
		newFormatCommand(c, true),
		newSpellcheckCommand(c),
		newVersionCommand(c),
		newPublishCommand(c),
	)

	return root
}

// setup loads the configuration and builds the application context once
// for the command being run.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if err := c.readConfig(); err != nil {
		return err
	}

	cfg, err := config.LoadFrom(c.v)
	if err != nil {
		return devkiterrors.WrapConfig(err, devkiterrors.ErrCodeConfigInvalid, "cannot load configuration")
	}

	app, err := appctx.New(appctx.Options{
		Config: cfg,
		Root:   c.dir,
		Debug:  c.debug,
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
		Fs:     c.opts.Fs,
		Lookup: c.opts.Lookup,
		Runner: c.opts.Runner,
	})
	if err != nil {
		return err
	}
	c.app = app

	ctx := cmd.Context()
	if c.missingConfig != "" {
		app.Logger.Warn(ctx, nil, "No configuration file found, using defaults", "path", c.missingConfig)
	}
	for _, w := range cfg.Warnings {
		app.Logger.Warn(ctx, &w, "Configuration warning", "field", w.Field, "value", w.Value)
		if len(w.Suggestions) > 0 {
			app.Console.Warn("%s (%s)", w.Error(), strings.Join(w.Suggestions, "; "))
		} else {
			app.Console.Warn("%s", w.Error())
		}
	}
	app.Logger.Debug(ctx, "Configuration loaded",
		"file", c.v.ConfigFileUsed(), "root", app.Project.Root())
	return nil
}

func (c *cli) teardown(*cobra.Command, []string) error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

// readConfig selects the configuration file. An explicitly named file must
// exist; the default .devkit.yml is optional.
func (c *cli) readConfig() error {
	c.v.SetFs(c.opts.Fs)
	c.v.SetEnvPrefix("DEVKIT")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	path := c.cfgFile
	if path == "" {
		path, _ = c.opts.Lookup(ConfigFileEnv)
	}
	explicit := path != ""
	if !explicit {
		path = filepath.Join(c.dir, defaultConfigName)
	}

	if !explicit {
		if ok, _ := afero.Exists(c.opts.Fs, path); !ok {
			c.missingConfig = path
			return nil
		}
	}

	c.v.SetConfigFile(path)
	c.v.SetConfigType("yaml")
	if err := c.v.ReadInConfig(); err != nil {
		return devkiterrors.WrapConfig(err, devkiterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot read config file %s", path))
	}
	return nil
}

// run adapts a handler that needs the application context to cobra.
func (c *cli) run(fn func(ctx context.Context, app *appctx.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return fn(cmd.Context(), c.app, args)
	}
}

// printError reports err once, followed by any build diagnostics it carries.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), devkiterrors.FormatError(err))
	if report := diagnostics(err); report != "" {
		fmt.Fprintln(w, report)
	}
}

func diagnostics(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		var de *devkiterrors.DevkitError
		if errors.As(e, &de) {
			if report, ok := de.Context["diagnostics"].(string); ok {
				return report
			}
		}
	}
	return ""
}
