package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals unusable input (empty question). Handled as a no-op.
	ErrValidation = errors.New("invalid query")
	// ErrServiceUnreachable signals a failed health probe. Recorded, never propagated.
	ErrServiceUnreachable = errors.New("service unreachable")
	// ErrEmbeddingService signals a failed embedding call or an unusable vector. Fatal.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrVectorStore signals a failed similarity query against one collection.
	ErrVectorStore = errors.New("vector store error")
	// ErrCollectionNotFound signals that the named collection does not exist.
	ErrCollectionNotFound = fmt.Errorf("collection not found: %w", ErrVectorStore)
	// ErrUnexpected wraps anything caught by the top-level boundary.
	ErrUnexpected = errors.New("unexpected error")
)

// CollectionError records a search failure for a single collection.
type CollectionError struct {
	Collection string
	Err        error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collection %q: %v", e.Collection, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }
