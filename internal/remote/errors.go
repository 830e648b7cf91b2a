package remote

import (
	"fmt"
	"net/http"
)

// FetchError reports a transport failure or a non-success status.
type FetchError struct {
	// URL is the endpoint that was requested.
	URL string

	// Status is the HTTP status code, or 0 for transport failures.
	Status int

	// Err is the transport error, nil for status failures.
	Err error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a response body that is not a well-formed record list.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
