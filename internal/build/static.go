package build

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
)

// copyTree copies every file under src into dst, keeping relative paths.
// It returns the number of files copied; a missing src copies nothing.
func copyTree(fs afero.Fs, src, dst string) (int, error) {
	if ok, err := afero.DirExists(fs, src); err != nil || !ok {
		return 0, err
	}

	copied := 0
	err := afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}
		if err := copyFile(fs, path, target); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

// copyFile copies one file, creating the destination directory.
func copyFile(fs afero.Fs, from, to string) error {
	data, err := afero.ReadFile(fs, from)
	if err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileNotFound, from)
	}
	if err := fs.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, filepath.Dir(to))
	}
	if err := afero.WriteFile(fs, to, data, 0o644); err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, to)
	}
	return nil
}

// copyIfExists copies from to to when from exists and reports whether it did.
func copyIfExists(fs afero.Fs, from, to string) (bool, error) {
	ok, err := afero.Exists(fs, from)
	if err != nil || !ok {
		return false, err
	}
	return true, copyFile(fs, from, to)
}
