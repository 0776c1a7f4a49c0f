// Package appctx assembles the dependencies shared by every command: the
// loaded configuration, the logger, the console, the command runner and
// the project being operated on. It is built once per invocation and
// passed to command handlers explicitly.
package appctx

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/conneroisu/devkit/internal/config"
	"github.com/conneroisu/devkit/internal/console"
	"github.com/conneroisu/devkit/internal/logging"
	"github.com/conneroisu/devkit/internal/project"
	"github.com/conneroisu/devkit/internal/runner"
)

// Options configures New.
type Options struct {
	Config *config.Config
	// Root is the project directory. Empty means the working directory.
	Root  string
	Debug bool
	// Out receives console lines and tool output; Err receives logs.
	Out io.Writer
	Err io.Writer
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Lookup reads the environment; it defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
	// Runner replaces the exec runner, for tests.
	Runner runner.Runner
}

// Context carries per-invocation dependencies.
type Context struct {
	Config  *config.Config
	Logger  logging.Logger
	Printer *message.Printer
	Console *console.Console
	Runner  runner.Runner
	Fs      afero.Fs
	Project *project.Project
	Debug   bool

	closers []io.Closer
}

// New builds the context. Debug forces debug-level logging regardless of
// log.level.
func New(opts Options) (*Context, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}

	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(opts.Config.Log.Level)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		level = logging.LevelDebug
	}
	logCfg := &logging.LoggerConfig{
		Level:     level,
		Format:    opts.Config.Log.Format,
		Output:    opts.Err,
		AddSource: opts.Debug,
		Component: "devkit",
	}

	c := &Context{
		Config: opts.Config,
		Fs:     opts.Fs,
		Debug:  opts.Debug,
	}

	var logger logging.Logger = logging.NewLogger(logCfg)
	if opts.Config.Log.Dir != "" {
		dir := opts.Config.Log.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		fileLogger, err := logging.NewFileLogger(logCfg, dir)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, fileLogger)
		logger = logging.NewMultiLogger(logger, fileLogger)
	}
	c.Logger = logger

	c.Printer = message.NewPrinter(Language(opts.Lookup))
	c.Console = console.New(opts.Out, c.Printer)

	c.Runner = opts.Runner
	if c.Runner == nil {
		exec := runner.NewExecRunner(logger)
		exec.Stdout = opts.Out
		exec.Stderr = opts.Err
		if editor := strings.Fields(opts.Config.Release.Editor); len(editor) > 0 {
			exec.Allow(editor[0])
		}
		c.Runner = exec
	}

	c.Project = project.Open(opts.Fs, root)

	return c, nil
}

// Close releases log files.
func (c *Context) Close() error {
	var first error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// Language picks the display language from LC_ALL, LC_MESSAGES or LANG,
// defaulting to English. "de_DE.UTF-8" becomes German.
func Language(lookup func(string) (string, bool)) language.Tag {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value, ok := lookup(key)
		if !ok || value == "" || value == "C" || value == "POSIX" {
			continue
		}
		if i := strings.IndexAny(value, ".@"); i >= 0 {
			value = value[:i]
		}
		tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
		if err == nil {
			return tag
		}
	}
	return language.English
}
