// Package release runs the version release workflow: validate, check,
// compute the next version, update the version files, write and review the
// changelog, commit, tag and push, then publish a hosted release.
//
// Every step runs only after the previous one succeeded. A failure leaves
// whatever earlier steps changed in place; nothing is rolled back.
package release

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/conneroisu/devkit/internal/bump"
	"github.com/conneroisu/devkit/internal/changelog"
	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/logging"
	"github.com/conneroisu/devkit/internal/project"
	"github.com/conneroisu/devkit/internal/runner"
	"github.com/conneroisu/devkit/internal/steps"
	"github.com/conneroisu/devkit/internal/vcs"
)

// Step names in execution order. Checks run between validate and version
// as "check:<name>".
const (
	StepValidate  = "validate"
	StepVersion   = "version"
	StepFiles     = "update-files"
	StepChangelog = "changelog"
	StepCommit    = "commit"
	StepPublish   = "publish-release"
)

// RequiredTools must be on PATH before a release starts.
var RequiredTools = []string{"git", "gh"}

// NotesFile is written under the output directory and handed to gh.
const NotesFile = "release-notes.md"

// Options wires the orchestrator to its collaborators.
type Options struct {
	Project  *project.Project
	Runner   runner.Runner
	Reviewer changelog.Reviewer
	Observer steps.Observer
	Logger   logging.Logger
	// Changelog is the changelog path relative to the project root.
	Changelog string
	// OutDir is the build output directory relative to the project root.
	OutDir string
	// Checks run before any file is touched.
	Checks []steps.Step
}

// Orchestrator sequences a release.
type Orchestrator struct {
	opts      Options
	git       *vcs.Git
	github    *vcs.GitHub
	updater   *project.Updater
	changelog *changelog.File
	publisher *Publisher
	logger    logging.Logger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Reviewer == nil {
		opts.Reviewer = changelog.ApproveReviewer{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	root := opts.Project.Root()
	return &Orchestrator{
		opts:      opts,
		git:       vcs.NewGit(opts.Runner, root),
		github:    vcs.NewGitHub(opts.Runner, root),
		updater:   project.NewUpdater(opts.Project, opts.Logger),
		changelog: changelog.NewFile(opts.Project.Fs(), opts.Project.Path(opts.Changelog)),
		publisher: NewPublisher(opts.Project, opts.OutDir, opts.Logger),
		logger:    opts.Logger.WithComponent("release"),
	}
}

// Outcome is what a release produced. Fields are filled as steps complete,
// so a failed release still reports how far it got.
type Outcome struct {
	Result  steps.Result
	Current string
	Version string
	Files   []string
	// Skipped lists version files the project does not have.
	Skipped []string
	Notes   string
	Assets  []string
}

// state is shared by the steps of one run.
type state struct {
	bump    bump.Bump
	pkg     project.Package
	plugin  bool
	current string
	next    string
	pre     bool
	files   []string
	skipped []string
	notes   string
	assets  []string
}

// Release runs the workflow for b.
func (o *Orchestrator) Release(ctx context.Context, b bump.Bump) (Outcome, error) {
	st := &state{bump: b}

	list := []steps.Step{steps.New(StepValidate, func(ctx context.Context) error { return o.validate(ctx, st) })}
	list = append(list, o.opts.Checks...)
	list = append(list,
		steps.New(StepVersion, func(ctx context.Context) error { return o.computeVersion(st) }),
		steps.New(StepFiles, func(ctx context.Context) error { return o.updateFiles(ctx, st) }),
		steps.New(StepChangelog, func(ctx context.Context) error { return o.writeChangelog(ctx, st) }),
		steps.New(StepCommit, func(ctx context.Context) error { return o.commit(ctx, st) }),
		steps.New(StepPublish, func(ctx context.Context) error { return o.publish(ctx, st) }),
	)

	o.logger.Info(ctx, "Starting release", "bump", b.String(), "steps", len(list))
	result := steps.Run(ctx, o.logger, o.opts.Observer, list...)

	outcome := Outcome{
		Result:  result,
		Current: st.current,
		Version: st.next,
		Files:   st.files,
		Skipped: st.skipped,
		Notes:   st.notes,
		Assets:  st.assets,
	}
	if err := result.AsError(); err != nil {
		if len(result.Completed) > 0 {
			o.logger.Warn(ctx, err, "Release stopped; earlier steps are not rolled back",
				"failed", result.Failed, "completed", strings.Join(result.Completed, ","))
		}
		return outcome, err
	}

	o.logger.Info(ctx, "Release complete", "version", st.next)
	return outcome, nil
}

func (o *Orchestrator) validate(ctx context.Context, st *state) error {
	if err := st.bump.Validate(); err != nil {
		return err
	}
	for _, tool := range RequiredTools {
		if _, err := o.opts.Runner.LookPath(tool); err != nil {
			return devkiterrors.NewPreconditionError(devkiterrors.ErrCodeToolMissing,
				fmt.Sprintf("%s is required for releases but was not found on PATH", tool)).
				WithContext("tool", tool)
		}
	}
	return o.git.EnsureClean(ctx)
}

func (o *Orchestrator) computeVersion(st *state) error {
	pkg, err := o.opts.Project.Package()
	if err != nil {
		return err
	}
	next, err := bump.Next(pkg.Version, st.bump)
	if err != nil {
		return err
	}
	if next == pkg.Version {
		return devkiterrors.NewValidationError(devkiterrors.ErrCodeVersionFormat,
			fmt.Sprintf("version %s is already the current version", next))
	}

	st.pkg = pkg
	st.plugin = o.opts.Project.IsPlugin()
	st.current = pkg.Version
	st.next = next
	st.pre = IsPrerelease(next)
	return nil
}

func (o *Orchestrator) updateFiles(ctx context.Context, st *state) error {
	result, err := o.updater.UpdateVersion(ctx, st.next, st.pre)
	st.files = append(st.files, result.Changed...)
	st.skipped = append(st.skipped, result.Skipped...)
	return err
}

func (o *Orchestrator) writeChangelog(ctx context.Context, st *state) error {
	since := o.git.LastTag(ctx)
	subjects, err := o.git.CommitSubjects(ctx, since)
	if err != nil {
		return err
	}

	if _, err := o.changelog.Prepend(st.next, subjects); err != nil {
		return err
	}
	st.files = append(st.files, o.opts.Changelog)

	if err := o.opts.Reviewer.Review(ctx, o.changelog.Path()); err != nil {
		return err
	}

	notes, err := o.changelog.Notes(st.next)
	if err != nil {
		return err
	}
	st.notes = notes
	return nil
}

func (o *Orchestrator) commit(ctx context.Context, st *state) error {
	if err := o.git.Add(ctx, st.files...); err != nil {
		return err
	}
	if err := o.git.Commit(ctx, vcs.ReleaseCommitPrefix+st.next); err != nil {
		return err
	}
	if err := o.git.Tag(ctx, st.next, st.next); err != nil {
		return err
	}
	return o.git.Push(ctx)
}

func (o *Orchestrator) publish(ctx context.Context, st *state) error {
	var err error
	if st.plugin {
		st.assets, err = o.publisher.PluginAssets(ctx, st.pre)
	} else {
		var archive string
		archive, err = o.publisher.PackageArchive(ctx, st.pkg.Name, st.next)
		st.assets = []string{archive}
	}
	if err != nil {
		return err
	}

	notesPath := filepath.Join(o.opts.OutDir, NotesFile)
	fs := o.opts.Project.Fs()
	if err := fs.MkdirAll(o.opts.Project.Path(o.opts.OutDir), 0o755); err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, o.opts.OutDir)
	}
	if err := afero.WriteFile(fs, o.opts.Project.Path(notesPath), []byte(st.notes+"\n"), 0o644); err != nil {
		return devkiterrors.WrapIO(err, devkiterrors.ErrCodeFileWrite, notesPath)
	}

	return o.github.CreateRelease(ctx, vcs.Release{
		Tag:        st.next,
		Title:      st.next,
		NotesFile:  notesPath,
		Assets:     st.assets,
		Prerelease: st.pre,
	})
}

// IsPrerelease reports whether version carries a prerelease suffix such as
// -beta.1 or -rc.1.
func IsPrerelease(version string) bool {
	core := strings.SplitN(version, "+", 2)[0]
	return strings.Contains(core, "-")
}
