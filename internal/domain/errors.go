package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedding marks an item whose vector could not be computed; the item is skipped.
	ErrEmbedding = errors.New("embedding failure")
	// ErrCapability marks a failed or unparsable language-model call.
	ErrCapability = errors.New("capability failure")
	// ErrNoInput is returned when a run has nothing to process.
	ErrNoInput = errors.New("no input")
	// ErrStore marks a persistence failure.
	ErrStore = errors.New("store failure")
	// ErrNotFound is returned by read-path lookups that match no row.
	ErrNotFound = errors.New("not found")
)

// StoreError reports a failed write together with the payload that was attempted.
type StoreError struct {
	Op      string
	Payload any
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}
