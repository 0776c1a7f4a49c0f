// Package vcs drives the git client and the GitHub CLI on behalf of the
// release workflow.
package vcs

import (
	"context"
	"strings"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/runner"
)

// ReleaseCommitPrefix starts the subject of every release commit.
const ReleaseCommitPrefix = "chore: release "

// Git runs git commands inside a working tree.
type Git struct {
	runner runner.Runner
	dir    string
}

// NewGit creates a git client rooted at dir.
func NewGit(r runner.Runner, dir string) *Git {
	return &Git{runner: r, dir: dir}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	return g.runner.Run(ctx, runner.Command{Name: "git", Args: args, Dir: g.dir})
}

// ChangedFiles lists the paths reported by git status --porcelain.
func (g *Git) ChangedFiles(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		files = append(files, strings.TrimSpace(line[3:]))
	}
	return files, nil
}

// EnsureClean fails with a precondition error when the working tree has changes.
func (g *Git) EnsureClean(ctx context.Context) error {
	files, err := g.ChangedFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		return devkiterrors.NewPreconditionError(devkiterrors.ErrCodeDirtyTree,
			"working tree has uncommitted changes; commit or stash them first").
			WithContext("files", files)
	}
	return nil
}

// LastTag returns the most recent tag reachable from HEAD, or "" when the
// repository has no tags.
func (g *Git) LastTag(ctx context.Context) string {
	tag, err := g.run(ctx, "describe", "--tags", "--abbrev=0")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(tag)
}

// CommitSubjects returns the subjects of commits after since, newest first.
// An empty since returns the whole history. Release commits are skipped.
func (g *Git) CommitSubjects(ctx context.Context, since string) ([]string, error) {
	args := []string{"log", "--format=%s"}
	if since != "" {
		args = append(args, since+"..HEAD")
	}

	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var subjects []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ReleaseCommitPrefix) {
			continue
		}
		subjects = append(subjects, line)
	}
	return subjects, nil
}

// Add stages files.
func (g *Git) Add(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		return nil
	}
	_, err := g.run(ctx, append([]string{"add", "--"}, files...)...)
	return err
}

// Commit records the staged changes.
func (g *Git) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

// Tag creates an annotated tag on HEAD.
func (g *Git) Tag(ctx context.Context, tag, message string) error {
	_, err := g.run(ctx, "tag", "-a", tag, "-m", message)
	return err
}

// Push pushes the current branch together with its annotated tags.
func (g *Git) Push(ctx context.Context) error {
	_, err := g.runner.Run(ctx, runner.Command{
		Name:   "git",
		Args:   []string{"push", "--follow-tags"},
		Dir:    g.dir,
		Stream: true,
	})
	return err
}
