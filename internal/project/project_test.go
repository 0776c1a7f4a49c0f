package project

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/logging"
)

const packageJSON = `{
  "name": "obsidian-sample-plugin",
  "version": "1.2.3",
  "private": true,
  "scripts": {
    "build": "devkit build"
  },
  "files": [
    "dist"
  ]
}
`

const lockJSON = `{
  "name": "obsidian-sample-plugin",
  "version": "1.2.3",
  "lockfileVersion": 3,
  "requires": true,
  "packages": {
    "": {
      "name": "obsidian-sample-plugin",
      "version": "1.2.3",
      "license": "MIT"
    },
    "node_modules/obsidian": {
      "version": "1.2.3"
    }
  }
}
`

const manifestJSON = `{
	"id": "sample-plugin",
	"name": "Sample Plugin",
	"version": "1.2.3",
	"minAppVersion": "1.4.0",
	"isDesktopOnly": false
}
`

const versionsJSON = `{
	"1.2.2": "1.3.0",
	"1.2.3": "1.4.0"
}
`

func newProject(t *testing.T, files map[string]string) *Project {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/work/"+name, []byte(content), 0o644))
	}
	return Open(fs, "/work")
}

func read(t *testing.T, p *Project, name string) string {
	t.Helper()
	data, err := afero.ReadFile(p.Fs(), p.Path(name))
	require.NoError(t, err)
	return string(data)
}

func TestPackage(t *testing.T) {
	p := newProject(t, map[string]string{PackageFile: packageJSON})

	pkg, err := p.Package()
	require.NoError(t, err)
	assert.Equal(t, Package{Name: "obsidian-sample-plugin", Version: "1.2.3", Private: true}, pkg)
	assert.False(t, p.IsPlugin())
}

func TestPackageErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		errType devkiterrors.ErrorType
	}{
		{name: "missing", files: map[string]string{}, errType: devkiterrors.ErrorTypeIO},
		{name: "invalid json", files: map[string]string{PackageFile: "{"}, errType: devkiterrors.ErrorTypeValidation},
		{name: "no version", files: map[string]string{PackageFile: `{"name":"x"}`}, errType: devkiterrors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newProject(t, tt.files).Package()
			require.Error(t, err)
			assert.True(t, devkiterrors.IsType(err, tt.errType))
		})
	}
}

func TestManifest(t *testing.T) {
	p := newProject(t, map[string]string{ManifestFile: manifestJSON})

	m, err := p.Manifest()
	require.NoError(t, err)
	assert.Equal(t, "sample-plugin", m.ID)
	assert.Equal(t, "1.4.0", m.MinAppVersion)
	assert.True(t, p.IsPlugin())

	p = newProject(t, map[string]string{ManifestFile: `{"name":"no id"}`})
	_, err = p.Manifest()
	assert.Error(t, err)
}

func TestUpdateVersionPackageOnly(t *testing.T) {
	p := newProject(t, map[string]string{PackageFile: packageJSON})

	result, err := NewUpdater(p, logging.NewNopLogger()).UpdateVersion(context.Background(), "1.3.0", false)
	require.NoError(t, err)

	assert.Equal(t, []string{PackageFile}, result.Changed)
	assert.ElementsMatch(t, []string{PackageLockFile, ShrinkwrapFile, ManifestFile, BetaManifestFile, VersionsFile}, result.Skipped)

	// Only the version value changes.
	want := `{
  "name": "obsidian-sample-plugin",
  "version": "1.3.0",
  "private": true,
  "scripts": {
    "build": "devkit build"
  },
  "files": [
    "dist"
  ]
}
`
	assert.Equal(t, want, read(t, p, PackageFile))
	assert.False(t, p.Exists(VersionsFile))
}

func TestUpdateVersionLockFile(t *testing.T) {
	p := newProject(t, map[string]string{PackageFile: packageJSON, PackageLockFile: lockJSON})

	result, err := NewUpdater(p, logging.NewNopLogger()).UpdateVersion(context.Background(), "2.0.0", false)
	require.NoError(t, err)
	assert.Contains(t, result.Changed, PackageLockFile)
	assert.Contains(t, result.Skipped, ShrinkwrapFile)

	lock := read(t, p, PackageLockFile)
	assert.Equal(t, "2.0.0", gjson.Get(lock, "version").String())
	assert.Equal(t, "1.2.3", gjson.Get(lock, "packages.node_modules/obsidian.version").String(),
		"dependency entries must not change")

	want := `{
  "name": "obsidian-sample-plugin",
  "version": "2.0.0",
  "lockfileVersion": 3,
  "requires": true,
  "packages": {
    "": {
      "name": "obsidian-sample-plugin",
      "version": "2.0.0",
      "license": "MIT"
    },
    "node_modules/obsidian": {
      "version": "1.2.3"
    }
  }
}
`
	assert.Equal(t, want, lock)
}

func TestUpdateVersionPluginRelease(t *testing.T) {
	p := newProject(t, map[string]string{
		PackageFile:  packageJSON,
		ManifestFile: manifestJSON,
		VersionsFile: versionsJSON,
	})

	result, err := NewUpdater(p, logging.NewNopLogger()).UpdateVersion(context.Background(), "1.2.4", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{PackageFile, ManifestFile, BetaManifestFile, VersionsFile}, result.Changed)

	assert.Equal(t, "1.2.4", gjson.Get(read(t, p, ManifestFile), "version").String())
	assert.Equal(t, "1.2.4", gjson.Get(read(t, p, BetaManifestFile), "version").String())
	assert.Equal(t, "sample-plugin", gjson.Get(read(t, p, BetaManifestFile), "id").String())

	want := "{\n\t\"1.2.2\": \"1.3.0\",\n\t\"1.2.3\": \"1.4.0\",\n\t\"1.2.4\": \"1.4.0\"\n}\n"
	assert.Equal(t, want, read(t, p, VersionsFile))
}

func TestUpdateVersionPluginBeta(t *testing.T) {
	p := newProject(t, map[string]string{
		PackageFile:  packageJSON,
		ManifestFile: manifestJSON,
	})

	result, err := NewUpdater(p, logging.NewNopLogger()).UpdateVersion(context.Background(), "1.2.4-beta.1", true)
	require.NoError(t, err)
	assert.Contains(t, result.Skipped, ManifestFile)

	assert.Equal(t, manifestJSON, read(t, p, ManifestFile), "stable manifest must not change for a beta")
	assert.Equal(t, "1.2.4-beta.1", gjson.Get(read(t, p, BetaManifestFile), "version").String())

	versions := read(t, p, VersionsFile)
	assert.Equal(t, "1.4.0", gjson.Get(versions, `1\.2\.4-beta\.1`).String())
}

func TestDetectIndent(t *testing.T) {
	assert.Equal(t, "\t", detectIndent([]byte(versionsJSON)))
	assert.Equal(t, "  ", detectIndent([]byte(packageJSON)))
	assert.Equal(t, "\t", detectIndent([]byte(`{"a":"b"}`)))
}
