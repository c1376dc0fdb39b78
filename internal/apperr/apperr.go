package apperr

import (
	"errors"
	"fmt"
)

// Code classifies failures surfaced by the deletion engine so callers can tell
// rejected input apart from an unavailable store.
type Code string

const (
	CodeValidation    Code = "validation"
	CodeNotFound      Code = "not_found"
	CodeStorage       Code = "storage"
	CodeUnexpected    Code = "unexpected"
	CodeConfiguration Code = "configuration"
)

// Sentinel errors for facts about records. Wrap them, don't compare strings.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyDeleted = errors.New("already deleted")
	ErrImmutable      = errors.New("deletion log is immutable")
)

// Error carries a Code, the name of the failing operation and the cause.
type Error struct {
	Code Code
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed caller input. No state has been mutated.
func Validation(msg string) error {
	return &Error{Code: CodeValidation, Msg: msg}
}

// Validationf is Validation with formatting; %w verbs are preserved for errors.Is.
func Validationf(format string, args ...interface{}) error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{Code: CodeValidation, Err: wrapped}
}

// NotFound reports a missing record for op.
func NotFound(op string, err error) error {
	if err == nil {
		err = ErrNotFound
	}
	return &Error{Code: CodeNotFound, Op: op, Err: err}
}

// Storage wraps a persistence failure with the failing operation name.
// Errors that already carry a Code are returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return &Error{Code: CodeStorage, Op: op, Err: err}
}

// Unexpected wraps anything that is neither bad input nor a storage failure.
// Errors that already carry a Code are returned unchanged.
func Unexpected(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return &Error{Code: CodeUnexpected, Op: op, Err: err}
}

// Configuration reports invalid process configuration. Fatal at startup.
func Configuration(msg string) error {
	return &Error{Code: CodeConfiguration, Msg: msg}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the Code of err, or CodeUnexpected for foreign errors.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeUnexpected
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}
