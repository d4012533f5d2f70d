package domain

import "time"

// DocumentStatus tracks where a document is in the ingest protocol.
type DocumentStatus string

const (
	// DocumentPending means metadata was written but the index is not yet
	// durable. Pending documents are never served.
	DocumentPending DocumentStatus = "pending"

	// DocumentReady means both the index and the metadata are durable.
	DocumentReady DocumentStatus = "ready"
)

// Document represents an ingested document.
// Documents are immutable once ingested; re-ingesting a file yields a new ID.
type Document struct {
	// ID is the opaque unique identifier generated at ingestion.
	ID string

	// SourcePath is the original file name or path.
	SourcePath string

	// Title is the human-readable title.
	Title string

	// MIMEType is the detected content type.
	MIMEType string

	// Status is the ingest lifecycle state.
	Status DocumentStatus

	// ChunkCount is the number of chunks stored for the document.
	ChunkCount int

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// IsReady reports whether the document can be queried.
func (d Document) IsReady() bool {
	return d.Status == DocumentReady
}

// Chunk is a contiguous, offset-tracked substring of a document's text.
type Chunk struct {
	// ID is derived from the document ID and the chunk's position.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// StartOffset is the first character (rune) position in the source text.
	StartOffset int

	// EndOffset is one past the last character position in the source text.
	EndOffset int

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.EndOffset - c.StartOffset
}
