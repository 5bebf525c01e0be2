package domain

import "errors"

var (
	// ErrInvalidInput indicates malformed arguments such as an empty question
	// or a vector whose dimension does not match the index.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingMismatch indicates the embedder returned a different number
	// of vectors than texts it was given.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrGeneratorUnavailable indicates no generator is configured.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)
