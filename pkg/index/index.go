// Package index defines the four ordered-key primitives the alphabetical
// search is built on, and the backends that provide them.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the index cannot answer: transport failure,
// timeout, or a malformed response. Callers test it with errors.Is.
var ErrUnavailable = errors.New("index unavailable")

// HitRecord is one index entry. Key is the ordered key with its id suffix and
// is unique within a corpus. Source is the opaque stored document.
type HitRecord struct {
	Key    string          `json:"key"`
	Source json.RawMessage `json:"source"`
}

// Index answers the four probes. Implementations must be safe for concurrent
// use. An empty result is not an error.
type Index interface {
	// ExactMatch returns entries whose ordered key equals key.
	ExactMatch(ctx context.Context, key string) ([]HitRecord, error)
	// PrefixMatch returns entries whose ordered key starts with prefix, in
	// ascending key order.
	PrefixMatch(ctx context.Context, prefix string) ([]HitRecord, error)
	// RangeAbove returns up to limit entries strictly before pivot, nearest
	// first (descending).
	RangeAbove(ctx context.Context, pivot string, limit int) ([]HitRecord, error)
	// RangeBelow returns up to limit entries strictly after pivot, nearest
	// first (ascending).
	RangeBelow(ctx context.Context, pivot string, limit int) ([]HitRecord, error)
}

// Operation names, used for metrics labels and the remote protocol paths.
const (
	OpExact  = "exact"
	OpPrefix = "prefix"
	OpAbove  = "above"
	OpBelow  = "below"
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
