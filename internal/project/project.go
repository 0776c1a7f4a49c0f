// Package project reads and rewrites the version records of a plugin or
// package project: package.json, the npm lock files, the plugin manifests
// and versions.json. Edits change only the targeted values and keep the
// surrounding formatting and key order.
package project

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
)

// Well-known project files.
const (
	PackageFile      = "package.json"
	PackageLockFile  = "package-lock.json"
	ShrinkwrapFile   = "npm-shrinkwrap.json"
	ManifestFile     = "manifest.json"
	BetaManifestFile = "manifest-beta.json"
	VersionsFile     = "versions.json"
	StylesFile       = "styles.css"
	MainFile         = "main.js"
)

// Package is the part of package.json devkit reads.
type Package struct {
	Name    string
	Version string
	Private bool
}

// Manifest is the part of a plugin manifest devkit reads.
type Manifest struct {
	ID            string
	Name          string
	Version       string
	MinAppVersion string
}

// Project is a project rooted at a directory of a filesystem.
type Project struct {
	fs   afero.Fs
	root string
}

// Open returns a project rooted at root.
func Open(fs afero.Fs, root string) *Project {
	return &Project{fs: fs, root: root}
}

// Fs returns the project's filesystem.
func (p *Project) Fs() afero.Fs {
	return p.fs
}

// Root returns the project's root directory.
func (p *Project) Root() string {
	return p.root
}

// Path joins name onto the project root.
func (p *Project) Path(name string) string {
	return filepath.Join(p.root, name)
}

// Exists reports whether name exists under the project root.
func (p *Project) Exists(name string) bool {
	ok, err := afero.Exists(p.fs, p.Path(name))
	return err == nil && ok
}

// IsPlugin reports whether the project ships a plugin manifest.
func (p *Project) IsPlugin() bool {
	return p.Exists(ManifestFile)
}

func (p *Project) readJSON(name string) ([]byte, error) {
	data, err := afero.ReadFile(p.fs, p.Path(name))
	if err != nil {
		return nil, devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileNotFound, name)
	}
	if !gjson.ValidBytes(data) {
		return nil, devkiterrors.NewValidationError(devkiterrors.ErrCodeManifestInvalid,
			"file is not valid JSON").WithFile(name)
	}
	return data, nil
}

func (p *Project) writeFile(name string, data []byte) error {
	if err := afero.WriteFile(p.fs, p.Path(name), data, 0o644); err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, name)
	}
	return nil
}

// Package reads package.json.
func (p *Project) Package() (Package, error) {
	data, err := p.readJSON(PackageFile)
	if err != nil {
		return Package{}, err
	}

	pkg := Package{
		Name:    gjson.GetBytes(data, "name").String(),
		Version: gjson.GetBytes(data, "version").String(),
		Private: gjson.GetBytes(data, "private").Bool(),
	}
	if pkg.Version == "" {
		return Package{}, devkiterrors.NewValidationError(devkiterrors.ErrCodeManifestInvalid,
			"package.json has no version").WithFile(PackageFile)
	}
	return pkg, nil
}

// Manifest reads manifest.json.
func (p *Project) Manifest() (Manifest, error) {
	return p.readManifest(ManifestFile)
}

func (p *Project) readManifest(name string) (Manifest, error) {
	data, err := p.readJSON(name)
	if err != nil {
		return Manifest{}, err
	}

	m := Manifest{
		ID:            gjson.GetBytes(data, "id").String(),
		Name:          gjson.GetBytes(data, "name").String(),
		Version:       gjson.GetBytes(data, "version").String(),
		MinAppVersion: gjson.GetBytes(data, "minAppVersion").String(),
	}
	if m.ID == "" {
		return Manifest{}, devkiterrors.NewValidationError(devkiterrors.ErrCodeManifestInvalid,
			fmt.Sprintf("%s has no id", name)).WithFile(name)
	}
	return m, nil
}
