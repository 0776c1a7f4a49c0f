package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/devkit/internal/bump"
	"github.com/conneroisu/devkit/internal/project"
	"github.com/conneroisu/devkit/internal/steps"
	"github.com/conneroisu/devkit/internal/vcs"
)

// Plan describes what a release would do, without doing it.
type Plan struct {
	Bump       string   `json:"bump" yaml:"bump"`
	Current    string   `json:"current" yaml:"current"`
	Next       string   `json:"next" yaml:"next"`
	Tag        string   `json:"tag" yaml:"tag"`
	Prerelease bool     `json:"prerelease" yaml:"prerelease"`
	Plugin     bool     `json:"plugin" yaml:"plugin"`
	Steps      []string `json:"steps" yaml:"steps"`
	Files      []string `json:"files" yaml:"files"`
	Assets     []string `json:"assets" yaml:"assets"`
	Commit     string   `json:"commit" yaml:"commit"`
	// Dirty lists uncommitted files that would stop the release.
	Dirty []string `json:"dirty,omitempty" yaml:"dirty,omitempty"`
}

// Plan computes the release plan for b. It reads the project and the
// working tree status but writes nothing.
func (o *Orchestrator) Plan(ctx context.Context, b bump.Bump) (Plan, error) {
	if err := b.Validate(); err != nil {
		return Plan{}, err
	}

	st := &state{bump: b}
	if err := o.computeVersion(st); err != nil {
		return Plan{}, err
	}

	names := []string{StepValidate}
	names = append(names, steps.Names(o.opts.Checks)...)
	names = append(names, StepVersion, StepFiles, StepChangelog, StepCommit, StepPublish)

	plan := Plan{
		Bump:       b.String(),
		Current:    st.current,
		Next:       st.next,
		Tag:        st.next,
		Prerelease: st.pre,
		Plugin:     st.plugin,
		Steps:      names,
		Files:      o.plannedFiles(st),
		Commit:     vcs.ReleaseCommitPrefix + st.next,
	}

	releaseDir := filepath.Join(o.opts.OutDir, ReleaseDir)
	if st.plugin {
		plan.Assets = []string{
			filepath.Join(releaseDir, project.MainFile),
			filepath.Join(releaseDir, project.ManifestFile),
		}
		if o.opts.Project.Exists(filepath.Join(o.opts.OutDir, project.StylesFile)) {
			plan.Assets = append(plan.Assets, filepath.Join(releaseDir, project.StylesFile))
		}
	} else {
		plan.Assets = []string{filepath.Join(o.opts.OutDir, ArchiveName(st.pkg.Name, st.next))}
	}

	if dirty, err := o.git.ChangedFiles(ctx); err == nil {
		plan.Dirty = dirty
	} else {
		o.logger.Debug(ctx, "Could not read working tree status", "error", err)
	}

	return plan, nil
}

func (o *Orchestrator) plannedFiles(st *state) []string {
	files := []string{project.PackageFile}
	for _, lock := range []string{project.PackageLockFile, project.ShrinkwrapFile} {
		if o.opts.Project.Exists(lock) {
			files = append(files, lock)
		}
	}
	if st.plugin {
		files = append(files, project.BetaManifestFile)
		if !st.pre {
			files = append(files, project.ManifestFile)
		}
		files = append(files, project.VersionsFile)
	}
	return append(files, o.opts.Changelog)
}

// Write renders the plan as text, json or yaml.
func (p Plan) Write(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		return p.writeText(w)
	default:
		return fmt.Errorf("unsupported plan format %q (use text, json or yaml)", format)
	}
}

func (p Plan) writeText(w io.Writer) error {
	kind := "release"
	if p.Prerelease {
		kind = "prerelease"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Version: %s -> %s (%s, %s)\n", p.Current, p.Next, p.Bump, kind)
	fmt.Fprintf(&b, "Commit:  %s\n", p.Commit)
	fmt.Fprintf(&b, "Tag:     %s\n", p.Tag)
	b.WriteString("Steps:\n")
	for i, s := range p.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
	}
	b.WriteString("Files:\n")
	for _, f := range p.Files {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	b.WriteString("Assets:\n")
	for _, a := range p.Assets {
		fmt.Fprintf(&b, "  - %s\n", a)
	}
	if len(p.Dirty) > 0 {
		fmt.Fprintf(&b, "Warning: working tree is dirty (%s); the release would stop at validate\n",
			strings.Join(p.Dirty, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
