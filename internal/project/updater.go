package project

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/logging"
)

// UpdateResult lists the files a version update touched or skipped.
type UpdateResult struct {
	Changed []string
	Skipped []string
}

// Updater rewrites version fields across a project.
type Updater struct {
	project *Project
	logger  logging.Logger
}

// NewUpdater creates an updater for p.
func NewUpdater(p *Project, logger logging.Logger) *Updater {
	return &Updater{project: p, logger: logger.WithComponent("project")}
}

// UpdateVersion writes version into every version record of the project.
// Missing lock files are skipped with a warning. For plugins
// manifest-beta.json and versions.json are always updated and manifest.json
// only for regular versions, so stable installs never see a beta.
func (u *Updater) UpdateVersion(ctx context.Context, version string, beta bool) (UpdateResult, error) {
	var result UpdateResult

	if err := u.setString(PackageFile, "version", version); err != nil {
		return result, err
	}
	result.Changed = append(result.Changed, PackageFile)

	for _, lock := range []string{PackageLockFile, ShrinkwrapFile} {
		if !u.project.Exists(lock) {
			result.Skipped = append(result.Skipped, lock)
			continue
		}
		if err := u.updateLockFile(lock, version); err != nil {
			return result, err
		}
		result.Changed = append(result.Changed, lock)
	}

	if !u.project.IsPlugin() {
		for _, name := range []string{ManifestFile, BetaManifestFile, VersionsFile} {
			result.Skipped = append(result.Skipped, name)
		}
		u.logSkipped(ctx, result.Skipped)
		return result, nil
	}

	manifest, err := u.project.Manifest()
	if err != nil {
		return result, err
	}

	if err := u.writeBetaManifest(version); err != nil {
		return result, err
	}
	result.Changed = append(result.Changed, BetaManifestFile)

	if beta {
		result.Skipped = append(result.Skipped, ManifestFile)
	} else {
		if err := u.setString(ManifestFile, "version", version); err != nil {
			return result, err
		}
		result.Changed = append(result.Changed, ManifestFile)
	}

	if err := u.addVersionsEntry(version, manifest.MinAppVersion); err != nil {
		return result, err
	}
	result.Changed = append(result.Changed, VersionsFile)

	u.logSkipped(ctx, result.Skipped)
	return result, nil
}

// IsLockFile reports whether name is one of the npm lock files the
// updater maintains.
func IsLockFile(name string) bool {
	return name == PackageLockFile || name == ShrinkwrapFile
}

func (u *Updater) logSkipped(ctx context.Context, skipped []string) {
	for _, name := range skipped {
		if IsLockFile(name) {
			u.logger.Warn(ctx, nil, "Lock file not found, skipping", "file", name)
		}
	}
}

// setString replaces the string at path in a JSON file.
func (u *Updater) setString(name, path, value string) error {
	data, err := u.project.readJSON(name)
	if err != nil {
		return err
	}
	updated, err := sjson.SetBytes(data, path, value)
	if err != nil {
		return devkiterrors.Wrap(err, devkiterrors.ErrorTypeIO, devkiterrors.ErrCodeFileWrite, "update "+path).
			WithFile(name)
	}
	return u.project.writeFile(name, updated)
}

// updateLockFile sets the top-level version and the root package entry,
// packages[""].version, which sjson paths cannot address.
func (u *Updater) updateLockFile(name, version string) error {
	data, err := u.project.readJSON(name)
	if err != nil {
		return err
	}

	data, err = sjson.SetBytes(data, "version", version)
	if err != nil {
		return devkiterrors.Wrap(err, devkiterrors.ErrorTypeIO, devkiterrors.ErrCodeFileWrite, "update version").
			WithFile(name)
	}

	if updated, ok := setRootPackageVersion(data, version); ok {
		data = updated
	}

	return u.project.writeFile(name, data)
}

// setRootPackageVersion rewrites packages[""].version in place. It reports
// false when the lock file has no root package entry with a version.
func setRootPackageVersion(data []byte, version string) ([]byte, bool) {
	packages := gjson.GetBytes(data, "packages")
	if !packages.IsObject() {
		return data, false
	}
	packagesAt := locate(data, packages)

	var root gjson.Result
	packages.ForEach(func(key, value gjson.Result) bool {
		if key.String() == "" {
			root = value
			return false
		}
		return true
	})
	if !root.IsObject() {
		return data, false
	}
	rootAt := strings.Index(packages.Raw, root.Raw)

	current := gjson.Get(root.Raw, "version")
	if current.Type != gjson.String || packagesAt < 0 || rootAt < 0 {
		return data, false
	}
	versionAt := locate([]byte(root.Raw), current)
	if versionAt < 0 {
		return data, false
	}

	start := packagesAt + rootAt + versionAt
	end := start + len(current.Raw)

	var out bytes.Buffer
	out.Grow(len(data) + len(version))
	out.Write(data[:start])
	out.WriteString(strconv.Quote(version))
	out.Write(data[end:])
	return out.Bytes(), true
}

// locate returns the offset of r.Raw in data, preferring r.Index.
func locate(data []byte, r gjson.Result) int {
	if r.Index > 0 && r.Index+len(r.Raw) <= len(data) && string(data[r.Index:r.Index+len(r.Raw)]) == r.Raw {
		return r.Index
	}
	return bytes.Index(data, []byte(r.Raw))
}

// writeBetaManifest creates or updates manifest-beta.json from manifest.json.
func (u *Updater) writeBetaManifest(version string) error {
	source := BetaManifestFile
	if !u.project.Exists(BetaManifestFile) {
		source = ManifestFile
	}

	data, err := u.project.readJSON(source)
	if err != nil {
		return err
	}
	updated, err := sjson.SetBytes(data, "version", version)
	if err != nil {
		return devkiterrors.Wrap(err, devkiterrors.ErrorTypeIO, devkiterrors.ErrCodeFileWrite, "update version").
			WithFile(BetaManifestFile)
	}
	return u.project.writeFile(BetaManifestFile, updated)
}

// addVersionsEntry records version → minAppVersion in versions.json,
// creating the file when missing. The file is re-indented with the indent
// it already uses, tabs when new.
func (u *Updater) addVersionsEntry(version, minAppVersion string) error {
	data := []byte("{}")
	indent := "\t"
	if u.project.Exists(VersionsFile) {
		existing, err := u.project.readJSON(VersionsFile)
		if err != nil {
			return err
		}
		data = existing
		indent = detectIndent(existing)
	}

	key := strings.ReplaceAll(version, ".", `\.`)
	updated, err := sjson.SetBytes(data, key, minAppVersion)
	if err != nil {
		return devkiterrors.Wrap(err, devkiterrors.ErrorTypeIO, devkiterrors.ErrCodeFileWrite, "add version entry").
			WithFile(VersionsFile)
	}

	formatted := pretty.PrettyOptions(updated, &pretty.Options{Width: 1, Indent: indent})
	return u.project.writeFile(VersionsFile, formatted)
}

// detectIndent returns the leading whitespace of the first indented line.
func detectIndent(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed != "" && len(trimmed) < len(line) {
			return line[:len(line)-len(trimmed)]
		}
	}
	return "\t"
}
