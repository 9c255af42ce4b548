package errors

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindUnauthorized
	KindCanceled
	KindDeadline
	KindPermanent
)

// statusClientClosedRequest is the nginx convention for requests the client
// abandoned before a response was written.
const statusClientClosedRequest = 499

var kindNames = [...]string{"unknown", "invalid_input", "unauthorized", "canceled", "deadline", "permanent"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// transport holds the HTTP status and gRPC code of each kind.
var transport = map[Kind]struct {
	http int
	grpc codes.Code
}{
	KindUnknown:      {http.StatusInternalServerError, codes.Unknown},
	KindInvalidInput: {http.StatusBadRequest, codes.InvalidArgument},
	KindUnauthorized: {http.StatusUnauthorized, codes.Unauthenticated},
	KindCanceled:     {statusClientClosedRequest, codes.Canceled},
	KindDeadline:     {http.StatusGatewayTimeout, codes.DeadlineExceeded},
	KindPermanent:    {http.StatusInternalServerError, codes.Internal},
}

// KindOf returns the kind of the first recognised error in err's chain.
// Typed input and auth failures win over a cancellation they wrap, and a
// cancellation wins over the PermanentError that Wrap puts around it.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case IsInvalidInput(err):
		return KindInvalidInput
	case IsUnauthorized(err):
		return KindUnauthorized
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindDeadline
	case IsPermanent(err):
		return KindPermanent
	default:
		return KindUnknown
	}
}

// As is errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsPermanent reports whether err is or wraps a PermanentError.
func IsPermanent(err error) bool {
	var target *PermanentError
	return errors.As(err, &target)
}

// IsInvalidInput reports whether err is or wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// IsUnauthorized reports whether err is or wraps an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}
