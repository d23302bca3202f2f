package openwire

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	// Verify sentinel errors are distinct
	errs := []error{
		ErrInvalidInput,
		ErrNotFound,
		ErrForbidden,
		ErrUnsupported,
		ErrInternal,
	}

	for i, err1 := range errs {
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"invalid input", invalidInput("bad"), IsInvalidInput},
		{"not found", notFound("gone"), IsNotFound},
		{"forbidden", forbidden("no"), IsForbidden},
		{"unsupported", unsupported("nope"), IsUnsupported},
		{"internal", newError(ErrInternal, "oops"), IsInternal},
		{"wrapped", fmt.Errorf("outer: %w", notFound("gone")), IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("%v not classified", tt.err)
			}
			var e *Error
			if !errors.As(tt.err, &e) {
				t.Errorf("%v is not *Error", tt.err)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"ErrNotFound", ErrNotFound, true},
		{"wrapped ErrNotFound", fmt.Errorf("wrapped: %w", ErrNotFound), true},
		{"other error", errors.New("other error"), false},
		{"forbidden", forbidden("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsNotFound(tt.err)
			if result != tt.expect {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, result, tt.expect)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := invalidInput("Invalid %s", "props")

	if err.Error() != "Invalid props" {
		t.Errorf("Error() = %q, want %q", err.Error(), "Invalid props")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = false")
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(ErrNotFound, "No item %d", 3)

	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	if err.Error() != "No item 3" {
		t.Errorf("Error() = %q, want %q", err.Error(), "No item 3")
	}
}
