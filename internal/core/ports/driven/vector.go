package driven

import (
	"context"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// VectorIndex stores one nearest-neighbour index per document.
// Scores are cosine similarities over L2-normalised vectors.
type VectorIndex interface {
	// Build creates a new index for manifest.DocID from scratch.
	// Returns domain.ErrAlreadyExists if an index exists in memory or on
	// disk for the document.
	Build(ctx context.Context, manifest domain.IndexManifest, entries []domain.IndexEntry) error

	// Search returns at most k hits ordered by descending score, ties broken
	// by ascending row id. Returns domain.ErrNotFound if no index exists.
	Search(ctx context.Context, docID string, query []float32, k int) ([]domain.VectorHit, error)

	// Persist writes the index to durable storage atomically.
	Persist(ctx context.Context, docID string) error

	// Load reads a persisted index into memory.
	// Returns domain.ErrNotFound if no artifact exists.
	Load(ctx context.Context, docID string) error

	// Manifest returns the provider identity of a persisted index.
	Manifest(ctx context.Context, docID string) (*domain.IndexManifest, error)

	// Delete removes the index and its artifact. Deleting twice is not an error.
	Delete(ctx context.Context, docID string) error

	// List returns the ids of every persisted index, sorted.
	List(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}
