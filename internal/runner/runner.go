// Package runner starts the external tools devkit sequences: the bundler's
// companions, lint and spellcheck tools, git, the GitHub CLI and npm.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/logging"
	"github.com/conneroisu/devkit/internal/validation"
)

// Command describes one subprocess invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
	// Stream copies output to the runner's writers while it is captured.
	Stream bool
	// Stdin is connected to the process when set.
	Stdin io.Reader
}

// String renders the command line with secrets redacted.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, logging.SanitizeArgs(c.Args)...), " ")
}

// Parse splits a configured command line such as "npx eslint ." and appends
// extra arguments.
func Parse(line string, extra ...string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, devkiterrors.NewConfigError(devkiterrors.ErrCodeConfigInvalid, "empty command line")
	}
	args := append(append([]string{}, parts[1:]...), extra...)
	return Command{Name: parts[0], Args: args}, nil
}

// Runner runs commands and resolves executables.
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec, restricted to an allowlist.
type ExecRunner struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Allowed map[string]bool
	logger  logging.Logger
}

// NewExecRunner creates a runner that streams to the process's stdout and stderr.
func NewExecRunner(logger logging.Logger) *ExecRunner {
	return &ExecRunner{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Allowed: validation.AllowedCommands,
		logger:  logger.WithComponent("runner"),
	}
}

// Allow extends the allowlist with operator-configured executables such
// as the changelog editor.
func (r *ExecRunner) Allow(names ...string) {
	allowed := make(map[string]bool, len(r.Allowed)+len(names))
	for name, ok := range r.Allowed {
		allowed[name] = ok
	}
	for _, name := range names {
		allowed[name] = true
	}
	r.Allowed = allowed
}

// LookPath resolves name on PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes cmd and returns its stdout without trailing whitespace. A non-zero exit becomes a
// DevkitError carrying the combined output.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	if err := validation.ValidateCommand(cmd.Name, r.Allowed); err != nil {
		return "", devkiterrors.Wrap(err, devkiterrors.ErrorTypeValidation,
			devkiterrors.ErrCodeCommandForbidden, "refusing to run command")
	}

	r.logger.Debug(ctx, "Running command", "command", cmd.String(), "dir", cmd.Dir)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	var stdout, stderr bytes.Buffer
	if cmd.Stream {
		c.Stdout = io.MultiWriter(&stdout, r.Stdout)
		c.Stderr = io.MultiWriter(&stderr, r.Stderr)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	if err := c.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s cancelled: %w", cmd.Name, ctx.Err())
		}
		output := strings.TrimSpace(stdout.String() + "\n" + stderr.String())
		return output, devkiterrors.Wrap(err, devkiterrors.ErrorTypeStep,
			devkiterrors.ErrCodeCommandFailed, fmt.Sprintf("%s failed", cmd.String())).
			WithContext("output", output)
	}

	return strings.TrimRight(stdout.String(), " \t\r\n"), nil
}
