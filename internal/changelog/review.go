package changelog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/conneroisu/devkit/internal/runner"
)

// Reviewer gives the operator a chance to edit the changelog before the
// release is committed. Returning an error aborts the release.
type Reviewer interface {
	Review(ctx context.Context, path string) error
}

// ApproveReviewer accepts the changelog without pausing.
type ApproveReviewer struct{}

// Review implements Reviewer.
func (ApproveReviewer) Review(context.Context, string) error {
	return nil
}

// PromptReviewer waits for the operator to press Enter.
type PromptReviewer struct {
	In  io.Reader
	Out io.Writer
}

// Review implements Reviewer.
func (p PromptReviewer) Review(ctx context.Context, path string) error {
	fmt.Fprintf(p.Out, "Review %s, then press Enter to continue (Ctrl+C aborts)... ", path)

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.In).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// EditorReviewer opens the changelog in an editor and continues when the
// editor exits.
type EditorReviewer struct {
	Runner runner.Runner
	// Editor is a command line such as "code --wait" or "vim".
	Editor string
}

// Review implements Reviewer.
func (e EditorReviewer) Review(ctx context.Context, path string) error {
	cmd, err := runner.Parse(e.Editor, path)
	if err != nil {
		return err
	}
	cmd.Stream = true
	cmd.Stdin = os.Stdin
	_, err = e.Runner.Run(ctx, cmd)
	return err
}
