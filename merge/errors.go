package merge

import (
	"errors"
	"fmt"
)

// ErrEmptySet is returned when Combine is invoked with no source documents.
var ErrEmptySet = errors.New("document set is empty")

// ParseError reports that one source document could not be read or parsed.
// The whole combine aborts; no partial output exists.
type ParseError struct {
	Index int    // position in the ordered set
	Name  string // display name of the offending source
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse source %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SerializeError reports that the fully-built output document could not be
// serialised.
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string { return fmt.Sprintf("serialize output: %v", e.Err) }

func (e *SerializeError) Unwrap() error { return e.Err }
