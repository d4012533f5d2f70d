package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService finds the chunks of a document most similar to a query.
// It never writes to the index or the metadata store.
type RetrievalService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	store    driven.MetadataStore
	locks    *DocLocks
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	store driven.MetadataStore,
	locks *DocLocks,
) *RetrievalService {
	if locks == nil {
		locks = NewDocLocks()
	}
	return &RetrievalService{
		embedder: embedder,
		index:    index,
		store:    store,
		locks:    locks,
	}
}

// Retrieve returns at most k chunks of docID ranked by similarity to query.
func (s *RetrievalService) Retrieve(ctx context.Context, docID, query string, k int) ([]domain.RetrievedChunk, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	unlock := s.locks.RLock(docID)
	defer unlock()

	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !doc.IsReady() {
		return nil, fmt.Errorf("%w: document %s is incomplete", domain.ErrNotFound, docID)
	}

	manifest, err := s.index.Manifest(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !compatible(*manifest, s.embedder) {
		return nil, fmt.Errorf("%w: %s was indexed with %s/%s (%d dims), active is %s/%s; run reindex",
			domain.ErrProviderMismatch, docID, manifest.Provider, manifest.Model, manifest.Dimensions,
			s.embedder.Provider(), s.embedder.ModelName())
	}

	k = min(k, manifest.ChunkCount)
	logger.Debug("Query %q against %s with k=%d", query, docID, k)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, docID, vec, k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.store.Get(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: index of %s references missing chunk %s",
					domain.ErrNotFound, docID, hit.ChunkID)
			}
			return nil, err
		}
		if chunk.DocumentID != docID {
			return nil, fmt.Errorf("%w: chunk %s belongs to %s", domain.ErrNotFound, hit.ChunkID, chunk.DocumentID)
		}
		results = append(results, domain.RetrievedChunk{Chunk: *chunk, Score: hit.Score})
	}

	logger.Debug("Retrieved %d chunks", len(results))
	return results, nil
}
