package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
)

// HostExternals are provided by the plugin host at runtime and never bundled.
var HostExternals = []string{
	"obsidian",
	"electron",
	"@codemirror/autocomplete",
	"@codemirror/collab",
	"@codemirror/commands",
	"@codemirror/language",
	"@codemirror/lint",
	"@codemirror/search",
	"@codemirror/state",
	"@codemirror/view",
	"@lezer/common",
	"@lezer/highlight",
	"@lezer/lr",
}

// NodeBuiltins resolve through the host's require on desktop.
var NodeBuiltins = []string{
	"assert", "buffer", "child_process", "crypto", "events", "fs", "fs/promises",
	"http", "https", "net", "os", "path", "querystring", "stream", "string_decoder",
	"timers", "tls", "url", "util", "zlib",
}

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ParseTarget maps a configured target such as "es2018" to esbuild's.
func ParseTarget(s string) (api.Target, error) {
	t, ok := targets[strings.ToLower(s)]
	if !ok {
		return api.DefaultTarget, devkiterrors.NewConfigError(devkiterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unsupported build target %q", s))
	}
	return t, nil
}

// BundleOptions configures one esbuild run.
type BundleOptions struct {
	// Root is the absolute project directory esbuild resolves from.
	Root    string
	Entry   string
	OutDir  string
	OutFile string
	Target  string
	Minify  bool
	// SourceMap embeds an inline source map.
	SourceMap bool
	External  []string
}

// OutputFile is one generated file, with a path relative to the project root.
type OutputFile struct {
	Path     string
	Contents []byte
}

// BundleResult is the outcome of a bundle run.
type BundleResult struct {
	Files    []OutputFile
	Errors   []devkiterrors.BuildError
	Warnings []devkiterrors.BuildError
	Duration time.Duration
}

// Bundle runs esbuild in memory with the source transform plugin.
// Messages are returned in the result; the error is set when esbuild
// reported any error.
func Bundle(ctx context.Context, opts BundleOptions) (*BundleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := ParseTarget(opts.Target)
	if err != nil {
		return nil, err
	}

	sourcemap := api.SourceMapNone
	if opts.SourceMap {
		sourcemap = api.SourceMapInline
	}

	external := append(append(append([]string{}, HostExternals...), NodeBuiltins...), opts.External...)

	start := time.Now()
	built := api.Build(api.BuildOptions{
		AbsWorkingDir:     opts.Root,
		EntryPoints:       []string{opts.Entry},
		Outfile:           filepath.Join(opts.OutDir, opts.OutFile),
		Bundle:            true,
		Write:             false,
		Format:            api.FormatCommonJS,
		Platform:          api.PlatformBrowser,
		Target:            target,
		Sourcemap:         sourcemap,
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		TreeShaking:       api.TreeShakingTrue,
		External:          external,
		Banner:            map[string]string{"js": Banner},
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{transformPlugin()},
	})

	result := &BundleResult{
		Errors:   convertMessages(built.Errors, devkiterrors.ErrorSeverityError),
		Warnings: convertMessages(built.Warnings, devkiterrors.ErrorSeverityWarning),
		Duration: time.Since(start),
	}

	for _, f := range built.OutputFiles {
		rel, relErr := filepath.Rel(opts.Root, f.Path)
		if relErr != nil {
			rel = f.Path
		}
		result.Files = append(result.Files, OutputFile{Path: rel, Contents: f.Contents})
	}

	if len(result.Errors) > 0 {
		return result, devkiterrors.NewBuildError(devkiterrors.ErrCodeBuildFailed,
			fmt.Sprintf("bundling failed with %d error(s)", len(result.Errors)), nil)
	}
	return result, nil
}

var loaders = map[string]api.Loader{
	".ts":  api.LoaderTS,
	".mts": api.LoaderTS,
	".cts": api.LoaderTS,
	".tsx": api.LoaderTSX,
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".jsx": api.LoaderJSX,
}

func transformPlugin() api.Plugin {
	return api.Plugin{
		Name: "devkit-source-transform",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.(m|c)?(t|j)sx?$`, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					data, err := os.ReadFile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					contents := TransformSource(string(data))
					return api.OnLoadResult{
						Contents:   &contents,
						Loader:     loaders[filepath.Ext(args.Path)],
						ResolveDir: filepath.Dir(args.Path),
					}, nil
				})
		},
	}
}

func convertMessages(messages []api.Message, severity devkiterrors.ErrorSeverity) []devkiterrors.BuildError {
	out := make([]devkiterrors.BuildError, 0, len(messages))
	for _, m := range messages {
		be := devkiterrors.BuildError{
			Source:   "esbuild",
			Message:  m.Text,
			Severity: severity,
		}
		if m.Location != nil {
			be.File = m.Location.File
			be.Line = m.Location.Line
			be.Column = m.Location.Column
		}
		out = append(out, be)
	}
	return out
}
