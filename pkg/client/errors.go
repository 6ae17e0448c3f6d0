package client

import (
	"errors"
	"fmt"
)

// TransportError wraps a network-level failure: the request never produced a
// decodable response. The underlying error message is surfaced verbatim.
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("contacts transport error (%s): %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError represents a response the server itself marked as failed, either
// via a non-2xx status or a success:false envelope. Consumers handle it
// identically to a TransportError: message surfaced, cache left untouched.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("contacts api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("contacts api error (status %d)", e.StatusCode)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAPI reports whether err is (or wraps) an APIError.
func IsAPI(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}
