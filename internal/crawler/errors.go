package crawler

import (
	"errors"
	"fmt"
)

// FetchError reports a page that could not be navigated to after all
// retries. It fails the page, not the job: the crawl records the URL and
// moves on.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractError reports a page that loaded but yielded no usable content
type ExtractError struct {
	URL    string
	Reason string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

// IsFetchError reports whether err is a per-page navigation failure
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsExtractError reports whether err is a per-page extraction failure
func IsExtractError(err error) bool {
	var ee *ExtractError
	return errors.As(err, &ee)
}
