package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/devkit/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			fmt.Fprintf(&builder, "  • %s: %s\n", issue.Field, issue.Message)
			for _, suggestion := range issue.Suggestions {
				fmt.Fprintf(&builder, "    💡 %s\n", suggestion)
			}
		}
	}

	write("Validation errors", vr.Errors)
	write("Validation warnings", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// ValidateConfigWithDetails performs validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateBuildConfigDetails(&config.Build, result)
	validateDevConfigDetails(&config.Dev, result)
	validateReleaseConfigDetails(&config.Release, result)
	validateToolsConfigDetails(&config.Tools, result)

	switch config.Log.Format {
	case "text", "json":
	default:
		result.addError("log.format", config.Log.Format, "unsupported log format", "use text or json")
	}

	return result
}

// validateConfig returns the first validation error, if any
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if result.HasErrors() {
		first := result.Errors[0]
		return &first
	}
	config.Warnings = result.Warnings
	return nil
}

func validateBuildConfigDetails(config *BuildConfig, result *ValidationResult) {
	for field, path := range map[string]string{
		"build.out_dir":    config.OutDir,
		"build.static_dir": config.StaticDir,
		"build.entry":      config.Entry,
	} {
		if err := validateProjectPath(path); err != nil {
			result.addError(field, path, err.Error(), "use a path relative to the project root")
		}
	}

	if filepath.Clean(config.OutDir) == "." {
		result.addError("build.out_dir", config.OutDir, "output directory cannot be the project root")
	}

	switch config.OutExtension {
	case ".js", ".cjs", ".mjs":
	default:
		result.addError("build.out_extension", config.OutExtension, "unsupported output extension",
			"use .js, .cjs or .mjs")
	}

	if !strings.HasPrefix(strings.ToLower(config.Target), "es") {
		result.addWarning("build.target", config.Target, "target is not an ECMAScript version",
			"esbuild accepts targets such as es2018 or es2022")
	}
}

func validateDevConfigDetails(config *DevConfig, result *ValidationResult) {
	for _, path := range config.Watch {
		if err := validateProjectPath(path); err != nil {
			result.addError("dev.watch", path, err.Error())
		}
	}
	if config.ReloadAddr != "" && !strings.Contains(config.ReloadAddr, ":") {
		result.addError("dev.reload_addr", config.ReloadAddr, "address must be host:port", "for example 127.0.0.1:7357")
	}
}

func validateReleaseConfigDetails(config *ReleaseConfig, result *ValidationResult) {
	for _, check := range config.Checks {
		switch check {
		case CheckSpellcheck, CheckLint, CheckFormat, CheckBuild:
		default:
			result.addError("release.checks", check, "unknown release check",
				"valid checks are spellcheck, lint, format and build")
		}
	}
	if err := validateProjectPath(config.Changelog); err != nil {
		result.addError("release.changelog", config.Changelog, err.Error())
	}
}

func validateToolsConfigDetails(config *ToolsConfig, result *ValidationResult) {
	for field, command := range map[string]string{
		"tools.eslint":       config.ESLint,
		"tools.markdownlint": config.MarkdownLint,
		"tools.formatter":    config.Formatter,
		"tools.spellcheck":   config.SpellCheck,
		"tools.typescript":   config.TypeScript,
		"tools.svelte":       config.Svelte,
		"tools.npm":          config.Npm,
	} {
		parts := strings.Fields(command)
		if len(parts) == 0 {
			result.addError(field, command, "command cannot be empty")
			continue
		}
		if err := validation.ValidateCommand(parts[0], validation.AllowedCommands); err != nil {
			result.addError(field, command, err.Error())
		}
	}
}

// validateProjectPath validates a path that must stay inside the project.
func validateProjectPath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("path must be relative: %s", path)
	}
	return validation.ValidatePath(path)
}
