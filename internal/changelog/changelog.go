// Package changelog maintains CHANGELOG.md: a "# CHANGELOG" title followed by
// one "## <version>" section per release, newest first.
package changelog

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
)

// Title is the first line of every changelog devkit writes.
const Title = "# CHANGELOG"

const emptySection = "- No notable changes"

// BuildSection renders the section for version from commit subjects.
func BuildSection(version string, subjects []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", version)
	if len(subjects) == 0 {
		b.WriteString(emptySection + "\n")
		return b.String()
	}
	for _, s := range subjects {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	return b.String()
}

// Insert places section directly below the title of existing. Everything
// after the title is kept byte for byte. A changelog without a title gets
// one.
func Insert(existing, section string) string {
	section = strings.TrimRight(section, "\n") + "\n"

	rest, ok := strings.CutPrefix(existing, Title)
	if !ok || (rest != "" && rest[0] != '\n' && rest[0] != '\r') {
		if strings.TrimSpace(existing) == "" {
			return Title + "\n\n" + section
		}
		return Title + "\n\n" + section + "\n" + existing
	}

	body := strings.TrimLeft(rest, "\r\n")
	if body == "" {
		return Title + "\n\n" + section
	}
	return Title + "\n\n" + section + "\n" + body
}

// Section extracts the body of the "## <version>" section from content,
// without its heading. It returns false when the section is absent.
func Section(content, version string) (string, bool) {
	heading := "## " + version
	lines := strings.Split(content, "\n")

	start := -1
	for i, line := range lines {
		if strings.TrimRight(line, " \r") == heading {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", false
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "## ") {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n")), true
}

// File is a changelog stored on a filesystem.
type File struct {
	fs   afero.Fs
	path string
}

// NewFile returns the changelog at path.
func NewFile(fs afero.Fs, path string) *File {
	return &File{fs: fs, path: path}
}

// Path returns the changelog location.
func (f *File) Path() string {
	return f.path
}

func (f *File) read() (string, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileNotFound, f.path)
	}
	return string(data), nil
}

// Prepend writes a new section for version above the previous ones and
// returns the section it wrote.
func (f *File) Prepend(version string, subjects []string) (string, error) {
	existing, err := f.read()
	if err != nil {
		return "", err
	}

	section := BuildSection(version, subjects)
	if err := afero.WriteFile(f.fs, f.path, []byte(Insert(existing, section)), 0o644); err != nil {
		return "", devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, f.path)
	}
	return section, nil
}

// Notes returns the current body of the section for version. It is read
// after review so operator edits reach the release notes.
func (f *File) Notes(version string) (string, error) {
	content, err := f.read()
	if err != nil {
		return "", err
	}
	notes, ok := Section(content, version)
	if !ok {
		return "", devkiterrors.NewValidationError(devkiterrors.ErrCodeFileNotFound,
			fmt.Sprintf("changelog has no section for %s", version)).WithFile(f.path)
	}
	return notes, nil
}
