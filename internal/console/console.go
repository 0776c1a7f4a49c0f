// Package console prints operator-facing status lines. Structured logs go
// through internal/logging; this package is for the short coloured lines a
// person watches while a workflow runs.
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	stepColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// Console writes status lines. It implements steps.Observer.
type Console struct {
	out     io.Writer
	printer *message.Printer
	title   cases.Caser

	mu      sync.Mutex
	started map[string]time.Time
	now     func() time.Time
}

// New creates a console writing to out. A nil printer uses English.
func New(out io.Writer, printer *message.Printer) *Console {
	tag := language.English
	if printer == nil {
		printer = message.NewPrinter(tag)
	}
	return &Console{
		out:     out,
		printer: printer,
		title:   cases.Title(tag),
		started: make(map[string]time.Time),
		now:     time.Now,
	}
}

// StepStarted prints the step being started.
func (c *Console) StepStarted(name string) {
	c.mu.Lock()
	c.started[name] = c.now()
	c.mu.Unlock()

	fmt.Fprintf(c.out, "%s %s\n", stepColor.Sprint("▶"), name)
}

// StepFinished prints the outcome of a step with its duration.
func (c *Console) StepFinished(name string, err error) {
	c.mu.Lock()
	elapsed := c.now().Sub(c.started[name])
	delete(c.started, name)
	c.mu.Unlock()

	if err != nil {
		fmt.Fprintf(c.out, "%s %s %s\n", failColor.Sprint("✗"), name, failColor.Sprint(err.Error()))
		return
	}
	fmt.Fprintf(c.out, "%s %s %s\n", successColor.Sprint("✓"), name,
		dimColor.Sprint(c.printer.Sprintf("(%d ms)", elapsed.Milliseconds())))
}

// Header prints a title-cased section heading such as "Release 1.2.4".
func (c *Console) Header(title string) {
	fmt.Fprintln(c.out, color.New(color.Bold).Sprint(c.title.String(title)))
}

// Success prints a success line.
func (c *Console) Success(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "%s %s\n", successColor.Sprint("✓"), c.printer.Sprintf(format, args...))
}

// Info prints a plain line.
func (c *Console) Info(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.printer.Sprintf(format, args...))
}

// Warn prints a warning line.
func (c *Console) Warn(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "%s %s\n", warnColor.Sprint("!"), c.printer.Sprintf(format, args...))
}

// Fail prints an error line.
func (c *Console) Fail(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "%s %s\n", failColor.Sprint("✗"), c.printer.Sprintf(format, args...))
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer {
	return c.out
}
