// Package build produces plugin and package bundles: it cleans the output
// directory, type-checks with tsc and svelte-check, copies static files,
// bundles with esbuild and optionally installs the result into a vault's
// plugin directory.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/devkit/internal/config"
	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/logging"
	"github.com/conneroisu/devkit/internal/project"
	"github.com/conneroisu/devkit/internal/runner"
	"github.com/conneroisu/devkit/internal/steps"
	"github.com/conneroisu/devkit/internal/validation"
)

// Mode selects production or development output.
type Mode int

const (
	// ModeProduction minifies when configured and omits source maps.
	ModeProduction Mode = iota
	// ModeDevelopment embeds fixed-up inline source maps and marks installed
	// plugins for hot reload.
	ModeDevelopment
)

// Step names.
const (
	StepClean   = "clean"
	StepCompile = "compile"
	StepStatic  = "static"
	StepBundle  = "bundle"
	StepInstall = "install"
)

// HotReloadMarker tells the Hot Reload plugin to watch an installed plugin.
const HotReloadMarker = ".hotreload"

// Options wires a Builder.
type Options struct {
	Config   *config.Config
	Project  *project.Project
	Runner   runner.Runner
	Logger   logging.Logger
	Observer steps.Observer
	Mode     Mode
}

// Builder runs the build steps for one project.
type Builder struct {
	cfg       *config.Config
	project   *project.Project
	runner    runner.Runner
	logger    logging.Logger
	observer  steps.Observer
	mode      Mode
	collector *devkiterrors.ErrorCollector
	metrics   *Metrics
}

// New creates a builder.
func New(opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{
		cfg:       opts.Config,
		project:   opts.Project,
		runner:    opts.Runner,
		logger:    logger.WithComponent("build"),
		observer:  opts.Observer,
		mode:      opts.Mode,
		collector: devkiterrors.NewErrorCollector(),
		metrics:   NewMetrics(),
	}
}

// Metrics returns the build counters.
func (b *Builder) Metrics() *Metrics {
	return b.metrics
}

// Diagnostics returns the messages collected by the last run.
func (b *Builder) Diagnostics() []devkiterrors.BuildError {
	return b.collector.GetErrors()
}

// Report renders the collected diagnostics.
func (b *Builder) Report() string {
	return b.collector.Report()
}

func (b *Builder) outDir() string {
	return b.project.Path(b.cfg.Build.OutDir)
}

// Steps returns the full build: clean, compile, static, bundle and, when a
// vault is configured for a plugin, install.
func (b *Builder) Steps() []steps.Step {
	list := []steps.Step{
		steps.New(StepClean, b.Clean),
		steps.New(StepCompile, b.Compile),
		steps.New(StepStatic, b.Static),
		steps.New(StepBundle, b.bundleStep),
	}
	if b.installEnabled() {
		list = append(list, steps.New(StepInstall, b.installStep))
	}
	return list
}

// RebuildSteps returns the steps a watch rebuild runs: type checking and
// cleaning are left to explicit builds.
func (b *Builder) RebuildSteps() []steps.Step {
	list := []steps.Step{
		steps.New(StepStatic, b.Static),
		steps.New(StepBundle, b.bundleStep),
	}
	if b.installEnabled() {
		list = append(list, steps.New(StepInstall, b.installStep))
	}
	return list
}

// Build runs Steps.
func (b *Builder) Build(ctx context.Context) error {
	return b.Run(ctx, b.Steps()...)
}

// Run executes a step list, recording it in the metrics.
func (b *Builder) Run(ctx context.Context, list ...steps.Step) error {
	b.collector.Clear()
	start := time.Now()
	err := steps.Run(ctx, b.logger, b.observer, list...).AsError()
	b.metrics.Record(time.Since(start), err)
	return err
}

// Clean removes the output directory.
func (b *Builder) Clean(ctx context.Context) error {
	if err := b.project.Fs().RemoveAll(b.outDir()); err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, b.cfg.Build.OutDir)
	}
	b.logger.Debug(ctx, "Cleaned output directory", "dir", b.cfg.Build.OutDir)
	return nil
}

// Static copies the static directory and the plugin manifest and styles
// into the output directory.
func (b *Builder) Static(ctx context.Context) error {
	fs := b.project.Fs()
	copied, err := copyTree(fs, b.project.Path(b.cfg.Build.StaticDir), b.outDir())
	if err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, b.cfg.Build.StaticDir)
	}

	for _, name := range []string{project.ManifestFile, project.StylesFile} {
		ok, err := copyIfExists(fs, b.project.Path(name), filepath.Join(b.outDir(), name))
		if err != nil {
			return err
		}
		if ok {
			copied++
		}
	}

	b.logger.Debug(ctx, "Copied static files", "count", copied)
	return nil
}

// Compile type-checks TypeScript and Svelte sources.
func (b *Builder) Compile(ctx context.Context) error {
	return steps.Run(ctx, b.logger, nil,
		steps.New("typescript", b.CompileTypeScript),
		steps.New("svelte", b.CompileSvelte),
	).AsError()
}

// CompileTypeScript runs the TypeScript compiler without emitting.
func (b *Builder) CompileTypeScript(ctx context.Context) error {
	return b.compile(ctx, NewCompiler("tsc", b.cfg.Tools.TypeScript, b.runner, b.project.Root()))
}

// CompileSvelte runs svelte-check. Projects without .svelte sources skip it
// with a warning.
func (b *Builder) CompileSvelte(ctx context.Context) error {
	srcDir := filepath.Dir(b.cfg.Build.Entry)
	found, err := HasFilesWithExt(b.project.Fs(), b.project.Path(srcDir), ".svelte")
	if err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileNotFound, srcDir)
	}
	if !found {
		b.logger.Warn(ctx, nil, "No .svelte files found, skipping svelte-check", "dir", srcDir)
		return nil
	}
	return b.compile(ctx, NewCompiler("svelte-check", b.cfg.Tools.Svelte, b.runner, b.project.Root()))
}

func (b *Builder) compile(ctx context.Context, c *Compiler) error {
	diagnostics, err := c.Compile(ctx)
	b.collector.Add(diagnostics...)
	if err != nil {
		return withReport(err, b.collector)
	}
	return nil
}

func withReport(err error, collector *devkiterrors.ErrorCollector) error {
	report := strings.TrimSpace(collector.Report())
	if report == "" {
		return err
	}
	return devkiterrors.WrapBuild(err, devkiterrors.ErrCodeBuildFailed, "build reported problems").
		WithContext("diagnostics", report)
}

func (b *Builder) bundleStep(ctx context.Context) error {
	_, err := b.Bundle(ctx)
	return err
}

// Bundle runs esbuild and writes the transformed output files. Plugin
// bundles are always main.js; package bundles take the entry's base name
// and the configured extension.
func (b *Builder) Bundle(ctx context.Context) (*BundleResult, error) {
	plugin := b.project.IsPlugin()
	dev := b.mode == ModeDevelopment

	outFile := project.MainFile
	ext := ".js"
	if !plugin {
		base := filepath.Base(b.cfg.Build.Entry)
		outFile = strings.TrimSuffix(base, filepath.Ext(base)) + ".js"
		ext = b.cfg.Build.OutExtension
	}

	result, err := Bundle(ctx, BundleOptions{
		Root:      b.project.Root(),
		Entry:     b.cfg.Build.Entry,
		OutDir:    b.cfg.Build.OutDir,
		OutFile:   outFile,
		Target:    b.cfg.Build.Target,
		Minify:    b.cfg.Build.Minify && !dev,
		SourceMap: dev,
		External:  b.cfg.Build.External,
	})
	if result != nil {
		b.collector.Add(result.Errors...)
		b.collector.Add(result.Warnings...)
	}
	if err != nil {
		return result, withReport(err, b.collector)
	}

	prefix := ""
	if plugin && dev {
		id, err := b.PluginID()
		if err != nil {
			return result, err
		}
		prefix = SourceURLPrefix(id)
	}

	fs := b.project.Fs()
	for i, f := range result.Files {
		contents := RewriteRelativeRequires(string(f.Contents), ext)
		if prefix != "" {
			if contents, err = FixSourceMap(contents, b.cfg.Build.OutDir, prefix); err != nil {
				return result, devkiterrors.WrapBuild(err, devkiterrors.ErrCodeBuildFailed, "fix source map").
					WithFile(f.Path)
			}
		}

		path := RenameExtension(f.Path, ext)
		if err := fs.MkdirAll(b.project.Path(filepath.Dir(path)), 0o755); err != nil {
			return result, devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, path)
		}
		if err := afero.WriteFile(fs, b.project.Path(path), []byte(contents), 0o644); err != nil {
			return result, devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, path)
		}
		result.Files[i] = OutputFile{Path: path, Contents: []byte(contents)}
	}

	b.logger.Info(ctx, "Bundled", "files", len(result.Files), "warnings", len(result.Warnings),
		"duration", result.Duration)
	return result, nil
}

// PluginID returns the configured plugin id or the one in manifest.json.
func (b *Builder) PluginID() (string, error) {
	id := b.cfg.Plugin.ID
	if id == "" {
		manifest, err := b.project.Manifest()
		if err != nil {
			return "", err
		}
		id = manifest.ID
	}
	if err := validation.ValidatePluginID(id); err != nil {
		return "", devkiterrors.NewValidationError(devkiterrors.ErrCodeManifestInvalid, err.Error())
	}
	return id, nil
}

func (b *Builder) installEnabled() bool {
	return b.cfg.Plugin.ConfigDir != "" && b.project.IsPlugin()
}

func (b *Builder) installStep(ctx context.Context) error {
	_, err := b.Install(ctx)
	return err
}

// Install copies main.js, manifest.json and styles.css from the output
// directory into <config dir>/plugins/<id>. Development installs also get
// the hot reload marker. It returns the plugin directory.
func (b *Builder) Install(ctx context.Context) (string, error) {
	if b.cfg.Plugin.ConfigDir == "" {
		return "", devkiterrors.NewPreconditionError(devkiterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s is not set; cannot install the plugin", config.EnvPluginConfigDir))
	}
	id, err := b.PluginID()
	if err != nil {
		return "", err
	}

	fs := b.project.Fs()
	dest := filepath.Join(b.cfg.Plugin.ConfigDir, "plugins", id)
	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return "", devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, dest)
	}

	if err := copyFile(fs, filepath.Join(b.outDir(), project.MainFile), filepath.Join(dest, project.MainFile)); err != nil {
		return "", err
	}
	for _, name := range []string{project.ManifestFile, project.StylesFile} {
		if _, err := copyIfExists(fs, filepath.Join(b.outDir(), name), filepath.Join(dest, name)); err != nil {
			return "", err
		}
	}

	if b.mode == ModeDevelopment {
		if err := afero.WriteFile(fs, filepath.Join(dest, HotReloadMarker), nil, 0o644); err != nil {
			return "", devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, HotReloadMarker)
		}
	}

	b.logger.Info(ctx, "Installed plugin", "dir", dest)
	return dest, nil
}
