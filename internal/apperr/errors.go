// Package apperr classifies failures so callers can tell "nothing changed"
// apart from "state may be partially written".
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ValidationError is a caller error detected before any mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidation returns a ValidationError with a formatted message.
func NewValidation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound returns a NotFoundError for entity with the given id.
func NewNotFound(entity string, id fmt.Stringer) error {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// ForbiddenError reports an ownership or role violation.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

// NewForbidden returns a ForbiddenError.
func NewForbidden(msg string) error {
	return &ForbiddenError{Msg: msg}
}

// IndeterminateError wraps a persistence failure that happened after
// best-effort writes were already applied without a transaction. The
// stored state needs manual reconciliation.
type IndeterminateError struct {
	cause error
}

func (e *IndeterminateError) Error() string {
	return "operation partially indeterminate, manual reconciliation required: " + e.cause.Error()
}

func (e *IndeterminateError) Unwrap() error { return e.cause }

// Cause implements the pkg/errors causer interface.
func (e *IndeterminateError) Cause() error { return e.cause }

// NewIndeterminate wraps err as an IndeterminateError.
func NewIndeterminate(err error) error {
	return &IndeterminateError{cause: errors.WithStack(err)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsForbidden(err error) bool {
	var f *ForbiddenError
	return errors.As(err, &f)
}

func IsIndeterminate(err error) bool {
	var ind *IndeterminateError
	return errors.As(err, &ind)
}
