package openwire

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the bridge wraps exactly one of these.
var (
	ErrInvalidInput = errors.New("openwire: invalid input")
	ErrNotFound     = errors.New("openwire: not found")
	ErrForbidden    = errors.New("openwire: forbidden")
	ErrUnsupported  = errors.New("openwire: unsupported")
	ErrInternal     = errors.New("openwire: internal error")
)

// Error is a classified bridge error. Message is what clients see; Kind is
// one of the sentinel errors above and is matched with errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Errorf returns an error of the given kind whose message is shown to the
// client as is. Action handlers use it to fail with a classified error.
//
//	return openwire.Errorf(openwire.ErrNotFound, "No item %d", i)
func Errorf(kind error, format string, args ...any) error {
	return newError(kind, format, args...)
}

func invalidInput(format string, args ...any) *Error {
	return newError(ErrInvalidInput, format, args...)
}

func notFound(format string, args ...any) *Error {
	return newError(ErrNotFound, format, args...)
}

func forbidden(format string, args ...any) *Error {
	return newError(ErrForbidden, format, args...)
}

func unsupported(format string, args ...any) *Error {
	return newError(ErrUnsupported, format, args...)
}

// IsInvalidInput checks if err is a malformed, oversized or too-deep request error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound checks if err is an unresolvable component or block error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden checks if err is a denied action error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnsupported checks if err reports a capability the component lacks.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsInternal checks if err is an unexpected collaborator failure.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}
