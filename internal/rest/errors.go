package rest

import (
	"errors"
	"fmt"
)

// RequestError is returned for every response outside the 2xx range.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s failed with status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func IsStatus(err error, statusCode int) bool {
	var requestErr *RequestError
	if errors.As(err, &requestErr) {
		return requestErr.StatusCode == statusCode
	}
	return false
}

// IsTransportError reports whether the request failed without a usable
// response: network failures, timeouts and malformed bodies.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var requestErr *RequestError
	return !errors.As(err, &requestErr)
}
