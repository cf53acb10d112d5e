package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport signals a request that could not be sent or whose response could not be read.
	ErrTransport = errors.New("transport error")
	// ErrHTTPStatus signals a non-2xx backend response.
	ErrHTTPStatus = errors.New("http status error")
	// ErrTimeout signals a request cancelled by its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrDecode signals a response body that is not the expected JSON shape.
	ErrDecode = errors.New("decode error")
	// ErrValidation signals input rejected before any network call.
	ErrValidation = errors.New("validation failed")
	// ErrBusy signals a submission attempted while another one of the same kind is in flight.
	ErrBusy = errors.New("submission already in flight")
)

// HTTPStatusError wraps ErrHTTPStatus with the status code and a best-effort backend message.
type HTTPStatusError struct {
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP error! status: %d - %s", e.StatusCode, e.Message)
}

func (e *HTTPStatusError) Unwrap() error { return ErrHTTPStatus }

// NewHTTPStatusError creates an HTTP status error.
func NewHTTPStatusError(code int, message string) error {
	return &HTTPStatusError{StatusCode: code, Message: message}
}

// IsTimeout reports whether err is a deadline cancellation.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
