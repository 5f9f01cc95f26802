package rag

import "errors"

// Sentinel errors for the failure classes callers branch on. They are
// wrapped with context at the point of failure and checked with errors.Is.
var (
	// ErrInvalidConfig marks settings rejected before any work starts:
	// non-positive chunk sizes, overlap at or above chunk size, thresholds
	// outside [0,1], unknown providers.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch marks a vector whose length disagrees with the
	// store's configured dimension. Nothing is written when it is returned.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStoreUnavailable marks a vector store that cannot be reached.
	// Retrieval surfaces it as an error rather than degrading to empty
	// results.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrNotFound marks a lookup for a document the index does not hold.
	ErrNotFound = errors.New("not found")
)
