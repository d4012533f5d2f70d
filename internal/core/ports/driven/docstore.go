package driven

import (
	"context"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// MetadataStore persists documents and chunks, one artifact per document.
// Backed by SQLite.
type MetadataStore interface {
	// SaveDocument creates the metadata artifact for a document.
	// Returns domain.ErrAlreadyExists if one exists.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// MarkReady flips a document to domain.DocumentReady.
	MarkReady(ctx context.Context, docID string) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, docID string) (*domain.Document, error)

	// ListDocuments returns every document with a metadata artifact,
	// including pending ones.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// Put stores a single chunk.
	Put(ctx context.Context, chunk domain.Chunk) error

	// PutChunks stores chunks for one document in a single transaction.
	PutChunks(ctx context.Context, chunks []domain.Chunk) error

	// Get retrieves a chunk by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, chunkID string) (*domain.Chunk, error)

	// GetByDoc retrieves all chunks for a document in position order.
	GetByDoc(ctx context.Context, docID string) ([]domain.Chunk, error)

	// DeleteByDoc removes the document artifact. Idempotent.
	DeleteByDoc(ctx context.Context, docID string) error

	// Close releases resources.
	Close() error
}
