package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUpstreamTimeout = errors.New("upstream did not respond")
	ErrStorage         = errors.New("storage unavailable")
	ErrProtocol        = errors.New("protocol error")
	ErrTransport       = errors.New("transport unavailable")
)

// Error is a classified failure. Kind is one of the sentinels above; Msg is
// safe to return to a client; Op describes the operation that failed.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}

func Protocol(msg string) error {
	return &Error{Kind: ErrProtocol, Msg: msg}
}

func UpstreamTimeout(msg string) error {
	return &Error{Kind: ErrUpstreamTimeout, Msg: msg}
}

// Storage wraps a store failure with the human description of the operation,
// e.g. "fetching customer".
func Storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Op: op, Err: err}
}

func Transport(op string, err error) error {
	return &Error{Kind: ErrTransport, Op: op, Err: err}
}

// Message returns the text a client should see for err.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Internal error: " + err.Error()
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("Error while %s: %v", e.Op, e.Err)
	}
	return e.Error()
}

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrValidation):
		return "validation"

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrForbidden):
		return "forbidden"

	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, ErrProtocol):
		return "protocol"

	case errors.Is(err, ErrStorage):
		return "storage"

	case errors.Is(err, ErrTransport):
		return "transport"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrProtocol):
		return http.StatusBadRequest

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, ErrUpstreamTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}
