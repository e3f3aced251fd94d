package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrPaginationNotFound means the listing page has no page-count text.
	ErrPaginationNotFound = errors.New("pagination text not found")
	// ErrPaginationFormat means the page-count text has no parsable total.
	ErrPaginationFormat = errors.New("pagination text malformed")
	// ErrUnexpectedStatus means the server answered with something other than 200.
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// TransportError reports a failed fetch of a URL the run depends on.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
