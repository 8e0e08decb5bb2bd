package client

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed
type Kind string

const (
	KindTimeout Kind = "timeout" // deadline exceeded before a full response arrived
	KindHTTP    Kind = "http"    // non-2xx status
	KindNetwork Kind = "network" // DNS, refused connection, aborted request
	KindDecode  Kind = "decode"  // body is not the expected JSON shape
)

// FetchError represents a failed request to the backend
type FetchError struct {
	Kind       Kind
	Path       string
	StatusCode int
	StatusText string
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("API error: %d %s (%s)", e.StatusCode, e.StatusText, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error (%s): %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s error (%s)", e.Kind, e.Path)
}

// Unwrap returns the underlying transport or decode error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the request exceeded its deadline
func (e *FetchError) IsTimeout() bool {
	return e.Kind == KindTimeout
}

// IsNotFound returns true if the error is a 404 not found error
func (e *FetchError) IsNotFound() bool {
	return e.Kind == KindHTTP && e.StatusCode == 404
}

// IsServerError returns true if the error is a 5xx server error
func (e *FetchError) IsServerError() bool {
	return e.Kind == KindHTTP && e.StatusCode >= 500
}

// KindOf returns the failure kind of err, or an empty string if err is not a *FetchError
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
