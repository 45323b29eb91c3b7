package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Caller-facing messages for the server-side error classes. Details stay in Err.
const (
	MsgMissingFields      = "Missing required fields"
	MsgConfiguration      = "Server configuration error"
	MsgPaymentSetupFailed = "Payment setup failed"
	MsgVerificationFailed = "Payment verification failed"
	MsgInternal           = "Internal server error"
)

// Error represents an application error. Message is safe to return to the
// caller; Err carries the internal cause and is only ever logged.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// BadRequest is a client input error; message is returned verbatim.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

// Configuration is a server misconfiguration. The caller only sees a generic message.
func Configuration(err error) *Error {
	return New(http.StatusInternalServerError, MsgConfiguration, err)
}

// Upstream wraps a failure from or while calling the payment gateway.
func Upstream(code int, message string, err error) *Error {
	return New(code, message, err)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusAndMessage maps any error to the HTTP status and caller-safe message.
func StatusAndMessage(err error) (int, string) {
	if appErr, ok := As(err); ok {
		return appErr.Code, appErr.Message
	}
	return http.StatusInternalServerError, MsgInternal
}
