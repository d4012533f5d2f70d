package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore is an in-memory implementation of driven.MetadataStore.
type MetadataStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores a new document.
func (s *MetadataStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; ok {
		return fmt.Errorf("%w: document %s", domain.ErrAlreadyExists, doc.ID)
	}
	d := *doc
	if d.Status == "" {
		d.Status = domain.DocumentPending
	}
	s.documents[d.ID] = d
	return nil
}

// MarkReady flips the document status to ready.
func (s *MetadataStore) MarkReady(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[docID]
	if !ok {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}
	doc.Status = domain.DocumentReady
	s.documents[docID] = doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *MetadataStore) GetDocument(_ context.Context, docID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents, oldest first.
func (s *MetadataStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Put stores a single chunk.
func (s *MetadataStore) Put(ctx context.Context, chunk domain.Chunk) error {
	return s.PutChunks(ctx, []domain.Chunk{chunk})
}

// PutChunks stores chunks for one document. Either all are stored or none.
func (s *MetadataStore) PutChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docID := chunks[0].DocumentID

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[docID]
	if !ok {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}

	seen := make(map[string]bool, len(s.chunks[docID])+len(chunks))
	for _, c := range s.chunks[docID] {
		seen[c.ID] = true
	}
	for _, c := range chunks {
		if c.DocumentID != docID {
			return fmt.Errorf("%w: chunks span documents", domain.ErrInvalidInput)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: chunk %s", domain.ErrAlreadyExists, c.ID)
		}
		seen[c.ID] = true
	}

	stored := append(s.chunks[docID], chunks...)
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	s.chunks[docID] = stored
	doc.ChunkCount = len(stored)
	s.documents[docID] = doc
	return nil
}

// Get retrieves a specific chunk by ID.
func (s *MetadataStore) Get(_ context.Context, chunkID string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			if chunk.ID == chunkID {
				return &chunk, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: chunk %s", domain.ErrNotFound, chunkID)
}

// GetByDoc retrieves all chunks for a document in position order.
func (s *MetadataStore) GetByDoc(_ context.Context, docID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.documents[docID]; !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}
	return append([]domain.Chunk(nil), s.chunks[docID]...), nil
}

// DeleteByDoc removes a document and its chunks.
func (s *MetadataStore) DeleteByDoc(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, docID)
	delete(s.chunks, docID)
	return nil
}

// Close is a no-op.
func (s *MetadataStore) Close() error {
	return nil
}
