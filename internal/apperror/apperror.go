package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind categorizes service errors.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindInvalidOperation Kind = "INVALID_OPERATION"
	KindUpstreamFailure  Kind = "UPSTREAM_FAILURE"
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindInternal         Kind = "INTERNAL"
)

// Error is the structured error returned by every service operation.
// Success is always false; it is carried so the value can be written to a
// response body as is.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"error"`
	Success bool   `json:"success"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInvalidOperation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GRPCStatus lets status.FromError and status.Code understand the error.
func (e *Error) GRPCStatus() *status.Status {
	var code codes.Code
	switch e.Kind {
	case KindValidation:
		code = codes.InvalidArgument
	case KindNotFound:
		code = codes.NotFound
	case KindConflict:
		code = codes.AlreadyExists
	case KindInvalidOperation:
		code = codes.FailedPrecondition
	case KindUnauthenticated:
		code = codes.Unauthenticated
	case KindUpstreamFailure:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.New(code, e.Message)
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func Validation(message string) *Error { return newError(KindValidation, message, nil) }

func NotFound(message string) *Error { return newError(KindNotFound, message, nil) }

func Conflict(message string) *Error { return newError(KindConflict, message, nil) }

func InvalidOperation(message string) *Error { return newError(KindInvalidOperation, message, nil) }

func Unauthenticated(message string) *Error { return newError(KindUnauthenticated, message, nil) }

// Upstream wraps a failure of an external collaborator (object storage,
// OAuth provider, a partially applied write).
func Upstream(message string, cause error) *Error {
	return newError(KindUpstreamFailure, message, cause)
}

// Internal wraps an unexpected storage or programming fault.
func Internal(message string, cause error) *Error {
	return newError(KindInternal, message, cause)
}

// From returns err as an *Error, wrapping unknown errors as Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	return From(err).Kind
}

func IsNotFound(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == KindNotFound
}

func IsConflict(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == KindConflict
}
