package driven

import (
	"context"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// EmbeddingService turns text into vectors for a VectorIndex.
//
// Failures wrap domain.ErrProviderUnavailable. A batch succeeds for every
// input or fails as a whole; zero vectors are never substituted.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order, however the
	// adapter splits the work.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length, or 0 while a local model's size is
	// still unknown. Vectors of any other length are rejected.
	Dimensions() int

	// ModelName and Provider are recorded in every index manifest.
	ModelName() string
	Provider() domain.AIProvider

	// Ping makes the cheapest request that proves the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
