package driven

import "github.com/custodia-labs/sercha-study/internal/core/domain"

// Chunker splits extracted document text into overlapping, offset-tracked
// chunks. Output is deterministic for a given text and configuration.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk splits text into chunks owned by docID, in position order.
	// Empty text yields no chunks.
	Chunk(docID, text string) []domain.Chunk
}
