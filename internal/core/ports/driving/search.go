package driving

import (
	"context"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// RetrievalService finds the chunks of one document most similar to a query.
type RetrievalService interface {
	// Retrieve returns at most k chunks in ranking order. k is clamped to
	// the document's chunk count.
	Retrieve(ctx context.Context, docID, query string, k int) ([]domain.RetrievedChunk, error)
}
