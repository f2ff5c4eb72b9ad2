package models

import "errors"

// Sentinel errors for the classification engine. Callers match them with
// errors.Is; producing code wraps them with fmt.Errorf("...: %w", ...) to
// attach row numbers, method names, and image ids.
var (
	// ErrStoreCorrupt indicates the persisted store file could not be parsed
	// into well-formed records. Fatal to the load that triggered it.
	ErrStoreCorrupt = errors.New("embedding store corrupt")

	// ErrDimensionMismatch indicates vectors of inconsistent dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrDegenerateVector indicates a zero-norm vector that cannot be
	// L2-normalized.
	ErrDegenerateVector = errors.New("zero-norm vector")

	// ErrEmptyIndex indicates an index build with no reference vectors.
	ErrEmptyIndex = errors.New("no vectors to index")

	// ErrNoReferenceData indicates a classification request for a method
	// that no record in the store has populated.
	ErrNoReferenceData = errors.New("no reference vectors for method")

	// ErrRequestParams indicates a malformed external request. Surfaced to
	// the caller with a description, never a crash.
	ErrRequestParams = errors.New("bad request parameters")

	// ErrExtraction indicates an opaque failure from a feature extractor.
	// Propagated, not retried: extraction failures are typically
	// deterministic per input.
	ErrExtraction = errors.New("feature extraction failed")
)
