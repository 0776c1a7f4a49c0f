package errors

import (
	"errors"
	"fmt"
	"maps"
)

// Wrap gives err a type, code and message. When err already carries a
// DevkitError its context, step and file are inherited.
func Wrap(err error, errType ErrorType, code, message string) *DevkitError {
	if err == nil {
		return nil
	}

	wrapped := newError(errType, code, message, err)
	var inner *DevkitError
	if errors.As(err, &inner) {
		wrapped.Context = inner.Context
		wrapped.Step = inner.Step
		wrapped.FilePath = inner.FilePath
	}
	return wrapped
}

// WrapIO reports a failed read or write of path.
func WrapIO(err error, code, path string) *DevkitError {
	de := Wrap(err, ErrorTypeIO, code, "file operation failed")
	if de != nil {
		de.FilePath = path
	}
	return de
}

func WrapConfig(err error, code, message string) *DevkitError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

func WrapBuild(err error, code, message string) *DevkitError {
	return Wrap(err, ErrorTypeBuild, code, message)
}

// FormatError renders err for the single top-level report, prefixed with
// its type when it is a DevkitError.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var de *DevkitError
	if errors.As(err, &de) && de.Type != "" {
		return fmt.Sprintf("%s error: %s", de.Type, err)
	}
	return err.Error()
}

// GetErrorContext returns the context of the first DevkitError in err's
// chain plus its type, code and step. It is nil for other errors.
func GetErrorContext(err error) map[string]interface{} {
	var de *DevkitError
	if !errors.As(err, &de) {
		return nil
	}

	ctx := maps.Clone(de.Context)
	if ctx == nil {
		ctx = make(map[string]interface{}, 3)
	}
	ctx["type"] = string(de.Type)
	if de.Code != "" {
		ctx["code"] = de.Code
	}
	if de.Step != "" {
		ctx["step"] = de.Step
	}
	return ctx
}
