package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/runner"
)

// Compiler type-checks sources with an external tool.
type Compiler struct {
	// Source names the tool in diagnostics.
	Source string
	// Command is the configured command line.
	Command string
	runner  runner.Runner
	dir     string
	parser  *devkiterrors.ErrorParser
}

// NewCompiler creates a compiler that runs command inside dir.
func NewCompiler(source, command string, r runner.Runner, dir string) *Compiler {
	return &Compiler{
		Source:  source,
		Command: command,
		runner:  r,
		dir:     dir,
		parser:  devkiterrors.NewErrorParser(),
	}
}

// Compile runs the tool. On failure the parsed diagnostics are returned
// with the error; output that cannot be parsed is kept on the error.
func (c *Compiler) Compile(ctx context.Context) ([]devkiterrors.BuildError, error) {
	cmd, err := runner.Parse(c.Command)
	if err != nil {
		return nil, err
	}
	cmd.Dir = c.dir

	output, err := c.runner.Run(ctx, cmd)
	diagnostics := c.parser.ParseOutput(c.Source, output)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s timed out: %w", c.Source, ctx.Err())
		}
		if detailed := devkiterrors.GetErrorContext(err)["output"]; len(diagnostics) == 0 && detailed != nil {
			diagnostics = c.parser.ParseOutput(c.Source, fmt.Sprint(detailed))
		}
		return diagnostics, devkiterrors.WrapBuild(err, devkiterrors.ErrCodeBuildFailed,
			fmt.Sprintf("%s reported %d problem(s)", c.Source, len(diagnostics)))
	}
	return diagnostics, nil
}

// HasFilesWithExt reports whether any file under dir, skipping
// node_modules and hidden directories, has the extension ext.
func HasFilesWithExt(fs afero.Fs, dir, ext string) (bool, error) {
	if ok, err := afero.DirExists(fs, dir); err != nil || !ok {
		return false, err
	}

	found := false
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != dir && (name == "node_modules" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ext {
			found = true
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		err = nil
	}
	return found, err
}

var errFound = errors.New("found")
