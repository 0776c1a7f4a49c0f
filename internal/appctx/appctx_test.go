package appctx

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/conneroisu/devkit/internal/config"
	"github.com/conneroisu/devkit/internal/runner"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want language.Tag
	}{
		{"empty", nil, language.English},
		{"lang", map[string]string{"LANG": "de_DE.UTF-8"}, language.MustParse("de-DE")},
		{"lc_all wins", map[string]string{"LC_ALL": "fr_FR", "LANG": "de_DE"}, language.MustParse("fr-FR")},
		{"posix skipped", map[string]string{"LC_ALL": "C", "LANG": "ja_JP.UTF-8"}, language.MustParse("ja-JP")},
		{"garbage", map[string]string{"LANG": "not a locale"}, language.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Language(env(tt.env)))
		})
	}
}

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Log:     config.LogConfig{Level: "warn", Format: "text"},
		Release: config.ReleaseConfig{Editor: "code --wait"},
	}
	var out, errOut bytes.Buffer

	c, err := New(Options{
		Config: cfg,
		Root:   "/work/plugin",
		Debug:  true,
		Out:    &out,
		Err:    &errOut,
		Fs:     afero.NewMemMapFs(),
		Lookup: env(nil),
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "/work/plugin", c.Project.Root())
	assert.True(t, c.Debug)
	exec, ok := c.Runner.(*runner.ExecRunner)
	require.True(t, ok)
	assert.Same(t, &out, exec.Stdout)
	assert.True(t, exec.Allowed["code"])

	c.Console.Info("hello")
	assert.Contains(t, out.String(), "hello")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Level: "loud", Format: "text"}}
	_, err := New(Options{Config: cfg, Root: "/work", Fs: afero.NewMemMapFs(), Lookup: env(nil)})
	assert.Error(t, err)
}

func TestNewWithLogDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Log: config.LogConfig{Level: "info", Format: "json", Dir: "logs"}}

	c, err := New(Options{Config: cfg, Root: dir, Fs: afero.NewMemMapFs(), Lookup: env(nil), Err: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
	assert.DirExists(t, dir+"/logs")
}
