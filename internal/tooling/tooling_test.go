package tooling

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/devkit/internal/config"
	"github.com/conneroisu/devkit/internal/logging"
	"github.com/conneroisu/devkit/internal/runner"
	"github.com/conneroisu/devkit/internal/steps"
)

var toolsConfig = config.ToolsConfig{
	ESLint:       "npx eslint .",
	MarkdownLint: "npx markdownlint-cli2 **/*.md #node_modules",
	Formatter:    "npx dprint",
	SpellCheck:   "npx cspell . --no-progress",
}

func TestToolCommands(t *testing.T) {
	tests := []struct {
		name  string
		steps func(*Tools) []steps.Step
		want  []string
	}{
		{
			name:  "lint",
			steps: func(tl *Tools) []steps.Step { return tl.Lint(false) },
			want:  []string{"npx eslint .", "npx markdownlint-cli2 **/*.md #node_modules"},
		},
		{
			name:  "lint fix",
			steps: func(tl *Tools) []steps.Step { return tl.Lint(true) },
			want:  []string{"npx eslint . --fix", "npx markdownlint-cli2 **/*.md #node_modules --fix"},
		},
		{
			name:  "format",
			steps: func(tl *Tools) []steps.Step { return []steps.Step{tl.Format(false)} },
			want:  []string{"npx dprint fmt"},
		},
		{
			name:  "format check",
			steps: func(tl *Tools) []steps.Step { return []steps.Step{tl.Format(true)} },
			want:  []string{"npx dprint check"},
		},
		{
			name:  "spellcheck",
			steps: func(tl *Tools) []steps.Step { return []steps.Step{tl.Spellcheck()} },
			want:  []string{"npx cspell . --no-progress"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := runner.NewFake()
			tools := New(toolsConfig, fake, "/work")

			result := steps.Run(context.Background(), logging.NewNopLogger(), nil, tt.steps(tools)...)
			require.True(t, result.OK())
			assert.Equal(t, tt.want, fake.Lines())
			for _, call := range fake.Calls {
				assert.Equal(t, "/work", call.Dir)
				assert.True(t, call.Stream)
			}
		})
	}
}

func TestLintStopsAfterESLintFailure(t *testing.T) {
	fake := runner.NewFake()
	fake.On("npx eslint .", "", errors.New("exit status 1"))

	result := steps.Run(context.Background(), logging.NewNopLogger(), nil, New(toolsConfig, fake, "").Lint(false)...)
	assert.Equal(t, StepESLint, result.Failed)
	assert.Equal(t, []string{"npx eslint ."}, fake.Lines())
}

func TestEmptyCommandLine(t *testing.T) {
	result := steps.Run(context.Background(), logging.NewNopLogger(), nil,
		New(config.ToolsConfig{}, runner.NewFake(), "").Spellcheck())
	assert.Error(t, result.Err)
}
