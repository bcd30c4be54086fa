// Package apperr defines the domain error kinds shared by the stores, the
// services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

// Resource names used in NotFound errors.
const (
	ResourceDocument = "document"
	ResourceUser     = "user"
)

// Error carries a kind plus a client-safe message.
type Error struct {
	Kind     error
	Resource string
	Msg      string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func Unauthenticated(msg string) error {
	return &Error{Kind: ErrUnauthenticated, Msg: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}

// NotFound reports a missing resource without echoing the requested identifier.
func NotFound(resource string) error {
	return &Error{Kind: ErrNotFound, Resource: resource, Msg: resource + " not found"}
}

// IsDomain reports whether err is one of the domain kinds above. Anything else
// is an infrastructure failure.
func IsDomain(err error) bool {
	for _, k := range []error{ErrValidation, ErrConflict, ErrUnauthenticated, ErrForbidden, ErrNotFound} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// ResourceOf returns the resource attached to a NotFound error, or "".
func ResourceOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Resource
	}
	return ""
}
