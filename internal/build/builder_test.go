package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/conneroisu/devkit/internal/config"
	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/logging"
	"github.com/conneroisu/devkit/internal/project"
	"github.com/conneroisu/devkit/internal/runner"
	"github.com/conneroisu/devkit/internal/steps"
)

const mainTS = `import { readFileSync } from "node:fs";

export const here: string = import.meta.url;

export function load(path: string): string {
	return readFileSync(path, "utf8");
}
`

func testConfig() *config.Config {
	return &config.Config{
		Build: config.BuildConfig{
			Entry:        "src/main.ts",
			OutDir:       "dist",
			StaticDir:    "static",
			Target:       "es2018",
			OutExtension: ".js",
		},
		Tools: config.ToolsConfig{
			TypeScript: "npx tsc --noEmit",
			Svelte:     "npx svelte-check --output machine",
		},
	}
}

func writeFiles(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func TestBuilderDevelopmentBundleAndInstall(t *testing.T) {
	root := t.TempDir()
	vault := t.TempDir()
	fs := afero.NewOsFs()
	writeFiles(t, fs, root, map[string]string{
		"src/main.ts":   mainTS,
		"manifest.json": `{"id": "sample-plugin", "version": "1.0.0", "minAppVersion": "1.4.0"}`,
		"styles.css":    ".sample {}",
	})

	cfg := testConfig()
	cfg.Plugin.ConfigDir = vault
	b := New(Options{
		Config:  cfg,
		Project: project.Open(fs, root),
		Runner:  runner.NewFake(),
		Logger:  logging.NewNopLogger(),
		Mode:    ModeDevelopment,
	})

	require.NoError(t, b.Run(context.Background(), b.RebuildSteps()...))

	out, err := os.ReadFile(filepath.Join(root, "dist", "main.js"))
	require.NoError(t, err)
	code := string(out)

	assert.True(t, strings.HasPrefix(code, "var "+ImportMetaURL))
	assert.Contains(t, code, `require("fs")`)
	assert.NotContains(t, code, "node:fs")
	assert.NotContains(t, code, "import.meta")

	sources := stringArray(gjson.Get(decodeInlineMap(t, code), "sources"))
	assert.Contains(t, sources, "app://obsidian.md/plugin:sample-plugin/src/main.ts")

	installed := filepath.Join(vault, "plugins", "sample-plugin")
	for _, name := range []string{"main.js", "manifest.json", "styles.css", HotReloadMarker} {
		_, err := os.Stat(filepath.Join(installed, name))
		assert.NoError(t, err, name)
	}

	snapshot := b.Metrics().Snapshot()
	assert.Equal(t, int64(1), snapshot.SuccessfulBuilds)
}

func TestBuilderPackageExtension(t *testing.T) {
	root := t.TempDir()
	fs := afero.NewOsFs()
	writeFiles(t, fs, root, map[string]string{
		"package.json": `{"name": "helpers", "version": "1.0.0"}`,
		"src/index.ts": "export const answer = 42;\n",
	})

	cfg := testConfig()
	cfg.Build.Entry = "src/index.ts"
	cfg.Build.OutExtension = ".cjs"
	cfg.Build.Minify = true

	b := New(Options{Config: cfg, Project: project.Open(fs, root), Runner: runner.NewFake()})
	result, err := b.Bundle(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, filepath.Join("dist", "index.cjs"), result.Files[0].Path)
	_, err = os.Stat(filepath.Join(root, "dist", "index.cjs"))
	assert.NoError(t, err)
	assert.NotContains(t, string(result.Files[0].Contents), "sourceMappingURL")
}

func TestBuilderBundleErrors(t *testing.T) {
	root := t.TempDir()
	fs := afero.NewOsFs()
	writeFiles(t, fs, root, map[string]string{
		"src/main.ts": "import { missing } from \"./nowhere\";\nexport const x = missing;\n",
	})

	b := New(Options{Config: testConfig(), Project: project.Open(fs, root), Runner: runner.NewFake()})
	err := b.Run(context.Background(), steps.New(StepBundle, b.bundleStep))
	require.Error(t, err)
	assert.True(t, devkiterrors.IsBuildError(err))

	diagnostics := b.Diagnostics()
	require.NotEmpty(t, diagnostics)
	assert.Equal(t, "esbuild", diagnostics[0].Source)
	assert.Equal(t, "src/main.ts", filepath.ToSlash(diagnostics[0].File))
	assert.Equal(t, 1, diagnostics[0].Line)
	assert.Contains(t, b.Report(), "nowhere")
	assert.Equal(t, int64(1), b.Metrics().Snapshot().FailedBuilds)
}

func TestBuilderCompileTypeScript(t *testing.T) {
	fake := runner.NewFake()
	output := "src/main.ts(3,7): error TS2322: Type 'string' is not assignable to type 'number'."
	fake.On("npx tsc --noEmit", output, errors.New("exit status 2"))

	b := New(Options{Config: testConfig(), Project: project.Open(afero.NewMemMapFs(), "/work"), Runner: fake})
	err := b.CompileTypeScript(context.Background())
	require.Error(t, err)
	assert.True(t, devkiterrors.IsBuildError(err))

	diagnostics := b.Diagnostics()
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "tsc", diagnostics[0].Source)
	assert.Equal(t, 3, diagnostics[0].Line)
	assert.Equal(t, "/work", fake.Calls[0].Dir)
}

func TestBuilderCompileSvelte(t *testing.T) {
	fs := afero.NewMemMapFs()
	fake := runner.NewFake()
	b := New(Options{Config: testConfig(), Project: project.Open(fs, "/work"), Runner: fake})

	require.NoError(t, b.CompileSvelte(context.Background()))
	assert.Empty(t, fake.Lines(), "svelte-check is skipped without .svelte files")

	writeFiles(t, fs, "/work", map[string]string{"src/View.svelte": "<div />"})
	require.NoError(t, b.CompileSvelte(context.Background()))
	assert.Equal(t, []string{"npx svelte-check --output machine"}, fake.Lines())
}

func TestBuilderCompileStopsAfterTypeScript(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/work", map[string]string{"src/View.svelte": "<div />"})
	fake := runner.NewFake()
	fake.On("npx tsc --noEmit", "", errors.New("exit status 1"))

	b := New(Options{Config: testConfig(), Project: project.Open(fs, "/work"), Runner: fake})
	require.Error(t, b.Compile(context.Background()))
	assert.Equal(t, []string{"npx tsc --noEmit"}, fake.Lines())
}

func TestBuilderStaticAndClean(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/work", map[string]string{
		"static/icons/logo.svg": "<svg/>",
		"manifest.json":         `{"id": "sample-plugin"}`,
		"styles.css":            ".a {}",
		"dist/stale.js":         "old",
	})

	b := New(Options{Config: testConfig(), Project: project.Open(fs, "/work"), Runner: runner.NewFake()})
	ctx := context.Background()

	require.NoError(t, b.Clean(ctx))
	exists, _ := afero.Exists(fs, "/work/dist/stale.js")
	assert.False(t, exists)

	require.NoError(t, b.Static(ctx))
	for _, name := range []string{"icons/logo.svg", "manifest.json", "styles.css"} {
		exists, err := afero.Exists(fs, filepath.Join("/work/dist", name))
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
}

func TestBuilderSteps(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/work", map[string]string{"manifest.json": `{"id": "sample-plugin"}`})
	cfg := testConfig()

	b := New(Options{Config: cfg, Project: project.Open(fs, "/work"), Runner: runner.NewFake()})
	assert.Equal(t, []string{StepClean, StepCompile, StepStatic, StepBundle}, steps.Names(b.Steps()))

	cfg.Plugin.ConfigDir = "/vault/.obsidian"
	assert.Equal(t, []string{StepClean, StepCompile, StepStatic, StepBundle, StepInstall}, steps.Names(b.Steps()))
	assert.Equal(t, []string{StepStatic, StepBundle, StepInstall}, steps.Names(b.RebuildSteps()))
}

func TestBuilderInstallRequiresConfigDir(t *testing.T) {
	b := New(Options{Config: testConfig(), Project: project.Open(afero.NewMemMapFs(), "/work"), Runner: runner.NewFake()})
	_, err := b.Install(context.Background())
	require.Error(t, err)
	assert.True(t, devkiterrors.IsPreconditionError(err))
}

func TestPluginID(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/work", map[string]string{"manifest.json": `{"id": "Bad ID"}`})
	cfg := testConfig()
	b := New(Options{Config: cfg, Project: project.Open(fs, "/work")})

	_, err := b.PluginID()
	assert.Error(t, err)

	cfg.Plugin.ID = "override-id"
	id, err := b.PluginID()
	require.NoError(t, err)
	assert.Equal(t, "override-id", id)
}

func TestParseTarget(t *testing.T) {
	_, err := ParseTarget("ES2020")
	assert.NoError(t, err)
	_, err = ParseTarget("es3")
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 0.0, m.SuccessRate())

	m.Record(100*time.Millisecond, nil)
	m.Record(300*time.Millisecond, errors.New("failed"))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.TotalBuilds)
	assert.Equal(t, 200*time.Millisecond, s.AverageDuration)
	assert.Equal(t, 300*time.Millisecond, s.LastDuration)
	assert.Equal(t, 50.0, m.SuccessRate())

	m.Reset()
	assert.Equal(t, int64(0), m.Snapshot().TotalBuilds)
}
