// Package tooling wraps the lint, format and spellcheck tools as steps.
package tooling

import (
	"context"

	"github.com/conneroisu/devkit/internal/config"
	"github.com/conneroisu/devkit/internal/runner"
	"github.com/conneroisu/devkit/internal/steps"
)

// Step names.
const (
	StepESLint       = "eslint"
	StepMarkdownLint = "markdownlint"
	StepFormat       = "format"
	StepSpellcheck   = "spellcheck"
)

// Tools runs the configured tool command lines inside a project.
type Tools struct {
	cfg    config.ToolsConfig
	runner runner.Runner
	dir    string
}

// New creates the tool set for the project at dir.
func New(cfg config.ToolsConfig, r runner.Runner, dir string) *Tools {
	return &Tools{cfg: cfg, runner: r, dir: dir}
}

func (t *Tools) step(name, line string, extra ...string) steps.Step {
	return steps.New(name, func(ctx context.Context) error {
		cmd, err := runner.Parse(line, extra...)
		if err != nil {
			return err
		}
		cmd.Dir = t.dir
		cmd.Stream = true
		_, err = t.runner.Run(ctx, cmd)
		return err
	})
}

// Lint returns the ESLint and markdownlint steps. With fix both tools
// rewrite the files they can repair.
func (t *Tools) Lint(fix bool) []steps.Step {
	var extra []string
	if fix {
		extra = []string{"--fix"}
	}
	return []steps.Step{
		t.step(StepESLint, t.cfg.ESLint, extra...),
		t.step(StepMarkdownLint, t.cfg.MarkdownLint, extra...),
	}
}

// Format returns the formatter step: "fmt" rewrites, "check" only reports.
func (t *Tools) Format(check bool) steps.Step {
	mode := "fmt"
	if check {
		mode = "check"
	}
	return t.step(StepFormat, t.cfg.Formatter, mode)
}

// Spellcheck returns the spellchecker step.
func (t *Tools) Spellcheck() steps.Step {
	return t.step(StepSpellcheck, t.cfg.SpellCheck)
}
