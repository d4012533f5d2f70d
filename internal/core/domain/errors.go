package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Documents whose index or metadata half is missing also report this.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles the file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrExtraction indicates a file could not be turned into text.
	ErrExtraction = errors.New("extraction failed")

	// ErrFileTooLarge indicates an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrProviderUnavailable indicates an embedding or LLM backend failed.
	// These failures are never retried automatically.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderMismatch indicates a stored index was embedded under a
	// different provider, model or dimension than the active one.
	ErrProviderMismatch = errors.New("embedding provider mismatch")

	// ErrInvalidMode indicates an unknown study mode.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrGenerationFormat indicates the LLM returned structured output that
	// could not be parsed, even after a corrective retry.
	ErrGenerationFormat = errors.New("generation format error")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
