// Package apperr defines the error taxonomy shared by the store, the editor
// service and the outer surfaces.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrPersistence   = errors.New("persistence failure")
	ErrAssetIO       = errors.New("asset io failure")
)

// Error is a typed failure. errors.Is matches both Kind and the wrapped cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap returns an *Error of the given kind. A nil err still yields an error.
func Wrap(kind error, op string, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Validation builds an ErrValidation failure with a formatted reason.
func Validation(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}
