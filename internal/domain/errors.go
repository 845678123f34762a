package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrProviderFailure     = errors.New("provider failure")
	ErrPersistenceFailure  = errors.New("persistence failure")
)

// RequestError is a structured client-facing failure. It carries the HTTP
// status and a stable machine-readable code so handlers never have to guess
// how a pipeline failure maps onto the wire.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewRequestError builds a RequestError with the given status, code and message.
func NewRequestError(status int, code, message string) *RequestError {
	return &RequestError{Status: status, Code: code, Message: message}
}

// BadRequest is shorthand for a 400 RequestError.
func BadRequest(code, message string) *RequestError {
	return NewRequestError(http.StatusBadRequest, code, message)
}

// AsRequestError unwraps err into a RequestError when possible.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
