package media

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoEmbeddedConfig    = errors.New("no embedded configuration")
	ErrNoCodecSources      = errors.New("no codec sources")
	ErrEmptyManifest       = errors.New("empty manifest")
	ErrNoSegmentsSucceeded = errors.New("no segments succeeded")
	ErrRemuxFailed         = errors.New("remux tool failed")
)

// FetchError is an HTTP failure for a page, manifest or segment. StatusCode is 0 for transport errors.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError is a missing or malformed embedded configuration or manifest. Reason is one of the sentinel errors
// where one applies, so callers can use errors.Is.
type ParseError struct {
	Source string
	Reason error
	Err    error
}

func NewParseError(source string, reason error, err error) *ParseError {
	return &ParseError{Source: source, Reason: reason, Err: err}
}

func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Reason != nil {
		msg += ": " + e.Reason.Error()
	}
	if e.Source != "" {
		msg += " (" + e.Source + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	var errs []error
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NoSuitableVariantError means no variant lies in the requested resolution window. It is structural, so it is never
// retried.
type NoSuitableVariantError struct {
	MinHeight int
	MaxHeight int
	Available []int
}

func (e *NoSuitableVariantError) Error() string {
	return fmt.Sprintf("no variant with height in [%d, %d] (available: %v)", e.MinHeight, e.MaxHeight, e.Available)
}

// SegmentFailure is a single unit that failed all of its attempts. The pool tolerates it.
type SegmentFailure struct {
	Ordinal  int
	URI      string
	Attempts int
	Err      error
}

func (e *SegmentFailure) Error() string {
	return fmt.Sprintf("segment %d failed after %d attempt(s): %v", e.Ordinal, e.Attempts, e.Err)
}

func (e *SegmentFailure) Unwrap() error {
	return e.Err
}

// AssemblyError is fatal: either nothing was fetched, or the final concatenation failed.
type AssemblyError struct {
	Reason string
	Err    error
}

func (e *AssemblyError) Error() string {
	msg := "assembly failed"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
