package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a DevkitError. The type decides how the command line
// reports the failure; every type exits with status 1.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypePrecondition ErrorType = "precondition"
	ErrorTypeStep         ErrorType = "step"
	ErrorTypeIO           ErrorType = "io"
	ErrorTypeBuild        ErrorType = "build"
	ErrorTypeConfig       ErrorType = "config"
)

// Error codes carried by DevkitError.Code.
const (
	ErrCodeInvalidBump      = "ERR_INVALID_BUMP"
	ErrCodeInvalidArgument  = "ERR_INVALID_ARGUMENT"
	ErrCodeVersionFormat    = "ERR_VERSION_FORMAT"
	ErrCodeToolMissing      = "ERR_TOOL_MISSING"
	ErrCodeDirtyTree        = "ERR_DIRTY_TREE"
	ErrCodeStepFailed       = "ERR_STEP_FAILED"
	ErrCodeBuildFailed      = "ERR_BUILD_FAILED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeFileWrite        = "ERR_FILE_WRITE"
	ErrCodeManifestInvalid  = "ERR_MANIFEST_INVALID"
	ErrCodeCommandFailed    = "ERR_COMMAND_FAILED"
	ErrCodeCommandForbidden = "ERR_COMMAND_FORBIDDEN"
	ErrCodeTokenMissing     = "ERR_TOKEN_MISSING"
)

// DevkitError is the structured error returned by devkit's workflows.
type DevkitError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	// Context holds extra values for the top-level report, such as the
	// "diagnostics" of a failed build.
	Context  map[string]interface{}
	Step     string
	FilePath string
}

// Error renders "[CODE] step:name file message: cause", omitting empty parts.
func (e *DevkitError) Error() string {
	var b strings.Builder
	write := func(s string) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}

	if e.Code != "" {
		write("[" + e.Code + "]")
	}
	if e.Step != "" {
		write("step:" + e.Step)
	}
	if e.FilePath != "" {
		write(e.FilePath)
	}
	write(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *DevkitError) Unwrap() error {
	return e.Cause
}

// Is matches another DevkitError with the same type and code.
func (e *DevkitError) Is(target error) bool {
	t, ok := target.(*DevkitError)
	return ok && e.Type == t.Type && e.Code == t.Code
}

// WithContext attaches a value to the error and returns it.
func (e *DevkitError) WithContext(key string, value interface{}) *DevkitError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithFile records the file the error refers to.
func (e *DevkitError) WithFile(path string) *DevkitError {
	e.FilePath = path
	return e
}

func newError(t ErrorType, code, message string, cause error) *DevkitError {
	return &DevkitError{Type: t, Code: code, Message: message, Cause: cause}
}

// NewValidationError reports bad user input, such as an unknown bump.
func NewValidationError(code, message string) *DevkitError {
	return newError(ErrorTypeValidation, code, message, nil)
}

// NewPreconditionError reports an unmet precondition such as a missing
// tool or a dirty working tree. Nothing has been changed when it is returned.
func NewPreconditionError(code, message string) *DevkitError {
	return newError(ErrorTypePrecondition, code, message, nil)
}

// NewStepError reports the failure of the named step.
func NewStepError(step string, cause error) *DevkitError {
	e := newError(ErrorTypeStep, ErrCodeStepFailed, "step failed", cause)
	e.Step = step
	return e
}

func NewBuildError(code, message string, cause error) *DevkitError {
	return newError(ErrorTypeBuild, code, message, cause)
}

func NewConfigError(code, message string) *DevkitError {
	return newError(ErrorTypeConfig, code, message, nil)
}

// IsType reports whether any DevkitError in err's chain has type t, so a
// build error wrapped by a failed step still counts as a build error.
func IsType(err error, t ErrorType) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *DevkitError:
		if e.Type == t {
			return true
		}
		return IsType(e.Cause, t)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsType(inner, t) {
				return true
			}
		}
		return false
	default:
		return IsType(errors.Unwrap(err), t)
	}
}

func IsPreconditionError(err error) bool { return IsType(err, ErrorTypePrecondition) }

func IsValidationError(err error) bool { return IsType(err, ErrorTypeValidation) }

func IsBuildError(err error) bool { return IsType(err, ErrorTypeBuild) }

func IsStepError(err error) bool { return IsType(err, ErrorTypeStep) }
