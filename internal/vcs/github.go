package vcs

import (
	"context"

	"github.com/conneroisu/devkit/internal/runner"
)

// Release describes a hosted release to create.
type Release struct {
	Tag        string
	Title      string
	NotesFile  string
	Assets     []string
	Prerelease bool
}

// Args renders the gh release create arguments.
func (r Release) Args() []string {
	title := r.Title
	if title == "" {
		title = r.Tag
	}
	args := []string{"release", "create", r.Tag}
	args = append(args, r.Assets...)
	args = append(args, "--title", title)
	if r.NotesFile != "" {
		args = append(args, "--notes-file", r.NotesFile)
	} else {
		args = append(args, "--generate-notes")
	}
	if r.Prerelease {
		args = append(args, "--prerelease")
	}
	return args
}

// GitHub runs the gh CLI inside a working tree.
type GitHub struct {
	runner runner.Runner
	dir    string
}

// NewGitHub creates a GitHub CLI client rooted at dir.
func NewGitHub(r runner.Runner, dir string) *GitHub {
	return &GitHub{runner: r, dir: dir}
}

// CreateRelease creates a release and uploads its assets.
func (gh *GitHub) CreateRelease(ctx context.Context, release Release) error {
	_, err := gh.runner.Run(ctx, runner.Command{
		Name:   "gh",
		Args:   release.Args(),
		Dir:    gh.dir,
		Stream: true,
	})
	return err
}
