package release

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/logging"
	"github.com/conneroisu/devkit/internal/project"
)

// ReleaseDir is the directory under the output directory that collects
// plugin release assets.
const ReleaseDir = "release"

// Publisher prepares the files attached to a hosted release. Returned paths
// are relative to the project root.
type Publisher struct {
	project *project.Project
	outDir  string
	logger  logging.Logger
}

// NewPublisher creates a publisher reading build output from outDir.
func NewPublisher(p *project.Project, outDir string, logger logging.Logger) *Publisher {
	return &Publisher{project: p, outDir: outDir, logger: logger.WithComponent("publisher")}
}

type assetCopy struct {
	from     string
	to       string
	optional bool
}

// PluginAssets copies main.js, manifest.json and styles.css into
// <out>/release. A beta release ships manifest-beta.json as manifest.json.
// styles.css is optional.
func (p *Publisher) PluginAssets(ctx context.Context, beta bool) ([]string, error) {
	releaseDir := filepath.Join(p.outDir, ReleaseDir)
	if err := p.project.Fs().MkdirAll(p.project.Path(releaseDir), 0o755); err != nil {
		return nil, devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, releaseDir)
	}

	manifest := project.ManifestFile
	if beta {
		manifest = project.BetaManifestFile
	}
	copies := []assetCopy{
		{from: filepath.Join(p.outDir, project.MainFile), to: filepath.Join(releaseDir, project.MainFile)},
		{from: manifest, to: filepath.Join(releaseDir, project.ManifestFile)},
		{from: filepath.Join(p.outDir, project.StylesFile), to: filepath.Join(releaseDir, project.StylesFile), optional: true},
	}

	copied := make([]bool, len(copies))
	workers := pool.New().WithContext(ctx)
	for i, c := range copies {
		workers.Go(func(ctx context.Context) error {
			if c.optional && !p.project.Exists(c.from) {
				p.logger.Debug(ctx, "Optional asset missing", "file", c.from)
				return nil
			}
			if err := copyFile(p.project.Fs(), p.project.Path(c.from), p.project.Path(c.to)); err != nil {
				return err
			}
			copied[i] = true
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return nil, err
	}

	var assets []string
	for i, c := range copies {
		if copied[i] {
			assets = append(assets, c.to)
		}
	}
	return assets, nil
}

// PackageArchive zips the output directory into <out>/<name>-<version>.zip.
// The release directory and earlier archives are left out.
func (p *Publisher) PackageArchive(ctx context.Context, name, version string) (string, error) {
	archive := filepath.Join(p.outDir, ArchiveName(name, version))
	fs := p.project.Fs()
	root := p.project.Path(p.outDir)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if rel == ReleaseDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(rel, ".zip") {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := fs.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return "", devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, archive)
	}
	if err := zw.Close(); err != nil {
		return "", devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, archive)
	}

	if err := afero.WriteFile(fs, p.project.Path(archive), buf.Bytes(), 0o644); err != nil {
		return "", devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, archive)
	}
	return archive, nil
}

// ArchiveName returns the archive file name for a package. Scoped names
// lose their "@" and the scope separator becomes "-".
func ArchiveName(name, version string) string {
	name = strings.ReplaceAll(strings.TrimPrefix(name, "@"), "/", "-")
	if name == "" {
		name = "package"
	}
	return name + "-" + version + ".zip"
}

func copyFile(fs afero.Fs, from, to string) error {
	data, err := afero.ReadFile(fs, from)
	if err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileNotFound, from)
	}
	if err := afero.WriteFile(fs, to, data, 0o644); err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, to)
	}
	return nil
}
