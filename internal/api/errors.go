package api

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a feed request did not produce usable data.
type FailureKind int

const (
	FailTransport FailureKind = iota // network error or timeout
	FailStatus                       // non-success HTTP status
	FailMissingHeader                // probe without Last-Modified
	FailEmptyBody                    // Content-Length: 0
	FailDecode                       // CSV could not be read
)

func (k FailureKind) String() string {
	switch k {
	case FailTransport:
		return "transport"
	case FailStatus:
		return "status"
	case FailMissingHeader:
		return "missing_header"
	case FailEmptyBody:
		return "empty_body"
	case FailDecode:
		return "decode"
	}
	return "unknown"
}

// FetchError is returned by every feed request that fails.
type FetchError struct {
	Kind       FailureKind
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: unexpected status code %d", e.Op, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or FailTransport when err is not a
// FetchError.
func KindOf(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FailTransport
}
