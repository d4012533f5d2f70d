package driving

import (
	"context"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// DocumentService manages the ingest lifecycle of documents.
type DocumentService interface {
	// Ingest extracts, chunks, embeds and indexes a file. Either the
	// document is fully indexed or nothing is left behind.
	Ingest(ctx context.Context, content []byte, filename string) (*domain.Document, error)

	// List returns all documents, including incomplete ones.
	List(ctx context.Context) ([]domain.Document, error)

	// Get returns a document with its index manifest.
	Get(ctx context.Context, docID string) (*DocumentDetails, error)

	// Delete removes a document's index and metadata. Idempotent.
	Delete(ctx context.Context, docID string) error

	// Prune removes documents left incomplete by an interrupted ingest
	// and returns their IDs.
	Prune(ctx context.Context) ([]string, error)

	// Reindex re-embeds a document's chunks under the active embedding
	// provider and rebuilds its index.
	Reindex(ctx context.Context, docID string) (*DocumentDetails, error)
}

// DocumentDetails provides a standardised view of document metadata.
type DocumentDetails struct {
	// Document is the stored document record.
	Document domain.Document

	// Manifest is the index manifest, nil when the index is missing.
	Manifest *domain.IndexManifest

	// Compatible is true when the index matches the active embedding provider.
	Compatible bool
}
