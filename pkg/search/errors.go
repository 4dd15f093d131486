package search

import (
	"errors"
	"fmt"
)

// ErrMissingItems marks a stored document without its items object.
var ErrMissingItems = errors.New("document has no items")

// MappingError reports an index record whose stored document cannot be read.
// It points at corrupt index data and is never retried.
type MappingError struct {
	Key string
	Err error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map index record %q: %v", e.Key, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }
