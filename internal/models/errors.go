package models

import "errors"

// Sentinel errors for the embedding pipeline.
var (
	// ErrInvalidInput means the text to embed was empty or whitespace-only.
	// Callers substitute a filler vector instead of propagating it.
	ErrInvalidInput = errors.New("text to embed is empty")

	// ErrProviderUnavailable means every embedding backend failed, including
	// the fallback retry. Batch callers count it as a per-item failure; the
	// search engine degrades to lexical-only.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrDimensionMismatch means a vector of the wrong length reached the
	// store write boundary. Reconciliation upstream should make this
	// impossible, so it is logged loudly when it occurs.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Sentinel errors for queries and lookups.
var (
	// ErrEmptyQuery means the raw query contained no usable tokens after
	// cleaning. Not an error from the caller's perspective: search returns
	// an empty result set without touching any store.
	ErrEmptyQuery = errors.New("query contains no usable tokens")

	ErrEntityNotFound    = errors.New("entity not found")
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrNoEmbedding means a similarity lookup referenced an entity whose
	// embedding has not been generated yet.
	ErrNoEmbedding = errors.New("entity has no embedding")
)
