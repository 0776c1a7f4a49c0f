package runner

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/logging"
	"github.com/conneroisu/devkit/internal/validation"
)

func TestParse(t *testing.T) {
	cmd, err := Parse("npx eslint .", "--fix")
	require.NoError(t, err)
	assert.Equal(t, "npx", cmd.Name)
	assert.Equal(t, []string{"eslint", ".", "--fix"}, cmd.Args)

	_, err = Parse("   ")
	assert.Error(t, err)
}

func TestCommandStringRedactsSecrets(t *testing.T) {
	cmd := Command{Name: "npm", Args: []string{"publish", "--//registry.npmjs.org/:_authToken=abc"}}
	assert.Equal(t, "npm publish [REDACTED]", cmd.String())
}

func TestExecRunnerRejectsUnlistedCommands(t *testing.T) {
	r := NewExecRunner(logging.NewNopLogger())

	_, err := r.Run(context.Background(), Command{Name: "rm", Args: []string{"-rf", "/"}})
	require.Error(t, err)
	assert.True(t, devkiterrors.IsValidationError(err))
}

func TestExecRunnerRun(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	var out bytes.Buffer
	r := NewExecRunner(logging.NewNopLogger())
	r.Stdout = &out

	version, err := r.Run(context.Background(), Command{Name: "git", Args: []string{"--version"}, Stream: true})
	require.NoError(t, err)
	assert.Contains(t, version, "git version")
	assert.Contains(t, out.String(), "git version")

	_, err = r.Run(context.Background(), Command{Name: "git", Args: []string{"no-such-subcommand"}})
	require.Error(t, err)
	assert.True(t, devkiterrors.IsStepError(err))
	assert.NotEmpty(t, devkiterrors.GetErrorContext(err)["output"])
}

func TestExecRunnerAllow(t *testing.T) {
	r := NewExecRunner(logging.NewNopLogger())
	r.Allow("vim")

	assert.True(t, r.Allowed["vim"])
	assert.True(t, r.Allowed["git"])
	assert.False(t, validation.AllowedCommands["vim"], "the shared allowlist must not change")
}
