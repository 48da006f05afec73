// Package apperr defines the error taxonomy shared by the short-ID pool and
// the cabling services. Callers classify errors with errors.Is against the
// sentinels or errors.As against the typed structs; translating them into
// user-facing messages is the route layer's job.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for type checking.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrPartialFailure  = errors.New("partial failure forbidden")
)

// NotFoundError indicates a resource doesn't exist.
type NotFoundError struct {
	Resource string // "short id", "print task", "port", ...
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError indicates the resource is already held by someone else.
type ConflictError struct {
	Resource string
	ID       string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s conflict: %s", e.Resource, e.ID, e.Message)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// InvalidStateError indicates the operation is illegal in the current status.
type InvalidStateError struct {
	Resource string
	ID       string
	State    string
	Op       string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %s", e.Op, e.Resource, e.ID, e.State)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// ValidationError indicates invalid caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// FormatError indicates a scanned or typed short-ID token that does not parse.
type FormatError struct {
	Token  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed short id %q: %s", e.Token, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidArgument
}

// WrongEntityTypeError indicates a short ID bound to an entity of another kind
// than the caller expected, e.g. a room label scanned at a cable end.
type WrongEntityTypeError struct {
	ShortID  int64
	Expected string
	Actual   string
}

func (e *WrongEntityTypeError) Error() string {
	return fmt.Sprintf("short id %d is bound to a %s, expected %s", e.ShortID, e.Actual, e.Expected)
}

func (e *WrongEntityTypeError) Unwrap() error {
	return ErrConflict
}

// PartialFailureError reports a multi-record operation that could not be
// applied completely and was rolled back.
type PartialFailureError struct {
	Op    string
	Cause error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s rolled back: %v", e.Op, e.Cause)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Cause}
}

// Helper constructors for common cases

func ShortIDNotFound(value int64) error {
	return &NotFoundError{Resource: "short id", ID: fmt.Sprintf("%d", value)}
}

func PrintTaskNotFound(id int64) error {
	return &NotFoundError{Resource: "print task", ID: fmt.Sprintf("%d", id)}
}

func InvalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidState checks if an error is an invalid-state error.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsInvalidArgument checks if an error is a validation error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
