package errors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BuildError is one diagnostic from esbuild, tsc or svelte-check.
type BuildError struct {
	// Source is the tool that reported the diagnostic.
	Source   string
	File     string
	Line     int
	Column   int
	Message  string
	Severity ErrorSeverity
}

// ErrorSeverity orders diagnostics; only errors fail a build.
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

var severityNames = map[ErrorSeverity]string{
	ErrorSeverityInfo:    "info",
	ErrorSeverityWarning: "warning",
	ErrorSeverityError:   "error",
	ErrorSeverityFatal:   "fatal",
}

func (s ErrorSeverity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

// Error renders the diagnostic as file:line:col: severity: message.
func (be *BuildError) Error() string {
	if be.File == "" {
		return fmt.Sprintf("%s: %s", be.Severity, be.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", be.File, be.Line, be.Column, be.Severity, be.Message)
}

// ErrorCollector gathers the diagnostics of one build run.
type ErrorCollector struct {
	mu   sync.Mutex
	errs []BuildError
}

func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{}
}

// Add appends diagnostics.
func (ec *ErrorCollector) Add(errs ...BuildError) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.errs = append(ec.errs, errs...)
}

// GetErrors returns a copy of the collected diagnostics in arrival order.
func (ec *ErrorCollector) GetErrors() []BuildError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]BuildError(nil), ec.errs...)
}

// Count returns how many diagnostics are at least as severe as min.
func (ec *ErrorCollector) Count(min ErrorSeverity) int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	n := 0
	for _, err := range ec.errs {
		if err.Severity >= min {
			n++
		}
	}
	return n
}

// HasErrors reports whether any diagnostic is an error; warnings alone
// do not fail a build.
func (ec *ErrorCollector) HasErrors() bool {
	return ec.Count(ErrorSeverityError) > 0
}

func (ec *ErrorCollector) Clear() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.errs = nil
}

// Report renders the diagnostics ordered by file and position, one per
// line, each prefixed with its tool.
func (ec *ErrorCollector) Report() string {
	errs := ec.GetErrors()
	sort.SliceStable(errs, func(i, j int) bool {
		a, b := errs[i], errs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})

	var b strings.Builder
	for _, err := range errs {
		if err.Source != "" {
			fmt.Fprintf(&b, "[%s] ", err.Source)
		}
		b.WriteString(err.Error())
		b.WriteByte('\n')
	}
	return b.String()
}
