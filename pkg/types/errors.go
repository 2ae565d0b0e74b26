package types

import "fmt"

// ErrorCode classifies a compile-time error.
type ErrorCode string

// Compile-time error codes. Runtime-degenerate conditions (division by
// near-zero, unresolved names) are by design not errors at all; evaluation
// is a total function.
const (
	ErrUnexpectedToken ErrorCode = "F0101" // token out of place
	ErrUnexpectedEnd   ErrorCode = "F0102" // input ended mid-expression
	ErrBadToken        ErrorCode = "F0103" // token is not a number, name or operator
	ErrArity           ErrorCode = "F0201" // wrong number of function arguments
	ErrTooManyLags     ErrorCode = "F0202" // lag() calls exceed the buffer capacity
)

// Error is a compile-time error with position information. A formula that
// produced an Error must not be evaluated; the host is expected to show the
// message and fall back to a neutral stamping strategy.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
}

// NewError creates a new compile error.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithToken records the offending token text.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}
