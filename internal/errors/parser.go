// Package errors provides the structured error types used across devkit and
// parsers that turn compiler output into diagnostics.
//
// Errors are classified by ErrorType: precondition failures (missing tool,
// dirty working tree, invalid version) abort a pipeline before any side
// effect, step failures abort the remaining steps without rollback, and
// everything else is reported once at the top level.
package errors

import (
	"regexp"
	"strconv"
	"strings"
)

type errorPattern struct {
	regex       *regexp.Regexp
	parseFields func(matches []string) (file string, line int, column int, severity ErrorSeverity, message string)
}

// ErrorParser parses TypeScript and svelte-check output into diagnostics
type ErrorParser struct {
	patterns []errorPattern
}

// NewErrorParser creates a new error parser
func NewErrorParser() *ErrorParser {
	return &ErrorParser{patterns: buildPatterns()}
}

func buildPatterns() []errorPattern {
	return []errorPattern{
		{
			// src/main.ts(12,5): error TS2322: message
			regex: regexp.MustCompile(`^(.+?)\((\d+),(\d+)\):\s+(error|warning)\s+(TS\d+:\s*.*)$`),
			parseFields: func(m []string) (string, int, int, ErrorSeverity, string) {
				return m[1], atoi(m[2]), atoi(m[3]), parseSeverity(m[4]), m[5]
			},
		},
		{
			// src/main.ts:12:5 - error TS2322: message
			regex: regexp.MustCompile(`^(.+?):(\d+):(\d+)\s+-\s+(error|warning)\s+(TS\d+:\s*.*)$`),
			parseFields: func(m []string) (string, int, int, ErrorSeverity, string) {
				return m[1], atoi(m[2]), atoi(m[3]), parseSeverity(m[4]), m[5]
			},
		},
		{
			// 1590680326283 ERROR "src/App.svelte" 1:16 "message"
			regex: regexp.MustCompile(`^\d+\s+(ERROR|WARNING)\s+"([^"]+)"\s+(\d+):(\d+)\s+"(.*)"$`),
			parseFields: func(m []string) (string, int, int, ErrorSeverity, string) {
				return m[2], atoi(m[3]), atoi(m[4]), parseSeverity(m[1]), m[5]
			},
		},
	}
}

// ParseOutput parses tool output into diagnostics attributed to source.
// Lines that match no known format are ignored.
func (ep *ErrorParser) ParseOutput(source, output string) []BuildError {
	var errs []BuildError

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for _, pattern := range ep.patterns {
			matches := pattern.regex.FindStringSubmatch(line)
			if matches == nil {
				continue
			}
			file, lineNum, column, severity, message := pattern.parseFields(matches)
			errs = append(errs, BuildError{
				Source:   source,
				File:     file,
				Line:     lineNum,
				Column:   column,
				Severity: severity,
				Message:  message,
			})
			break
		}
	}

	return errs
}

func parseSeverity(s string) ErrorSeverity {
	if strings.EqualFold(s, "warning") {
		return ErrorSeverityWarning
	}
	return ErrorSeverityError
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
