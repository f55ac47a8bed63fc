package almanac

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that no row exists for a date in a record family.
// It is distinct from DecodeError: absence means the caller may fetch
// and fill, a decode failure means the stored row is corrupt.
var ErrNotFound = errors.New("almanac record not found")

// ResolutionError reports that upstream endpoint discovery failed,
// either on transport or with a non-success envelope.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("almanac endpoint resolution failed: %v", e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// FetchError reports a failed remote fetch, tagged by dimension so
// callers can tell which of the two independent fetches broke.
type FetchError struct {
	Dimension Dimension
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("almanac %s fetch failed: %v", e.Dimension, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports a stored payload that could not be parsed. The
// row exists; its content is unusable.
type DecodeError struct {
	Dimension Dimension
	Date      string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stored %s almanac payload for %s is malformed: %v", e.Dimension, e.Date, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError reports a failed store transaction for one dimension.
type WriteError struct {
	Dimension Dimension
	Date      string
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s almanac record for %s: %v", e.Dimension, e.Date, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// RetrievalError wraps any lower-level failure surfaced by the
// retrieval flow. Callers always get either a complete Info or this.
type RetrievalError struct {
	Date string
	Err  error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("almanac retrieval for %s failed: %v", e.Date, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
