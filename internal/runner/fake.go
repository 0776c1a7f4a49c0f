package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is an in-memory Runner for tests. Responses are keyed by the command
// line ("git status --porcelain"); unknown commands succeed with no output.
type Fake struct {
	mu        sync.Mutex
	Responses map[string]FakeResponse
	// Missing lists executables LookPath reports as absent.
	Missing map[string]bool
	Calls   []Command
}

// FakeResponse is the canned result for one command line.
type FakeResponse struct {
	Output string
	Err    error
}

// NewFake creates an empty fake runner.
func NewFake() *Fake {
	return &Fake{
		Responses: make(map[string]FakeResponse),
		Missing:   make(map[string]bool),
	}
}

// On registers a response for a command line.
func (f *Fake) On(line string, output string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[line] = FakeResponse{Output: output, Err: err}
	return f
}

// Run records cmd and returns the registered response.
func (f *Fake) Run(_ context.Context, cmd Command) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmd)
	resp := f.Responses[Line(cmd)]
	return resp.Output, resp.Err
}

// LookPath reports every executable as present unless listed in Missing.
func (f *Fake) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

// Lines returns the recorded command lines.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = Line(c)
	}
	return lines
}

// Line renders a command without redaction.
func Line(cmd Command) string {
	return strings.TrimSpace(cmd.Name + " " + strings.Join(cmd.Args, " "))
}
