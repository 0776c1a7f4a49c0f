// Package steps runs ordered lists of fallible steps and stops at the first
// failure. Both the build and the release workflows are expressed as step
// lists executed by Run.
package steps

import (
	"context"
	"errors"

	devkiterrors "github.com/conneroisu/devkit/internal/errors"
	"github.com/conneroisu/devkit/internal/logging"
)

// Step is a single named unit of work.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// New creates a step.
func New(name string, run func(ctx context.Context) error) Step {
	return Step{Name: name, Run: run}
}

// Result describes the outcome of a step list.
type Result struct {
	// Completed lists the steps that finished successfully, in order.
	Completed []string
	// Failed is the name of the step that stopped the run, if any.
	Failed string
	Err    error
}

// OK reports whether every step succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// AsError returns nil for a successful result. A failure that is already
// a classified DevkitError is returned unchanged; anything else becomes a
// step error naming the failed step.
func (r Result) AsError() error {
	if r.Err == nil {
		return nil
	}
	var de *devkiterrors.DevkitError
	if errors.As(r.Err, &de) && de.Type != "" {
		return r.Err
	}
	return devkiterrors.NewStepError(r.Failed, r.Err)
}

// Observer is notified as steps start and finish.
type Observer interface {
	StepStarted(name string)
	StepFinished(name string, err error)
}

// Run executes steps in order. The first step that returns an error, or a
// cancelled context before a step starts, ends the run; later steps never
// execute.
func Run(ctx context.Context, logger logging.Logger, observer Observer, steps ...Step) Result {
	result := Result{Completed: make([]string, 0, len(steps))}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			result.Failed = step.Name
			result.Err = err
			return result
		}

		if observer != nil {
			observer.StepStarted(step.Name)
		}
		op := logging.StartOperation(logger, step.Name)

		err := step.Run(ctx)

		if observer != nil {
			observer.StepFinished(step.Name, err)
		}
		if err != nil {
			op.EndWithError(ctx, err)
			result.Failed = step.Name
			result.Err = err
			return result
		}
		op.End(ctx)
		result.Completed = append(result.Completed, step.Name)
	}

	return result
}

// Names returns the names of steps in order.
func Names(steps []Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}
