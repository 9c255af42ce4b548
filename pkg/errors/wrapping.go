package errors

import (
	"fmt"
)

// Wrap adds context to err and keeps its category. Untyped errors become
// PermanentErrors.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}

	switch {
	case IsInvalidInput(err):
		var iie *InvalidInputError
		As(err, &iie)
		return NewInvalidInputWithCause(iie.field, msg, err)
	case IsUnauthorized(err):
		return NewUnauthorizedWithCause(msg, err)
	default:
		return NewPermanent(msg, err)
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}
