// Package postprocessors builds the text processors run between extraction
// and embedding.
package postprocessors

import (
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/postprocessors/chunker"
)

// Ensure the chunker satisfies the port.
var _ driven.Chunker = (*chunker.Processor)(nil)

// NewChunker builds the chunker configured by cfg.
// Returns domain.ErrInvalidInput when the window is invalid.
func NewChunker(cfg domain.RuntimeConfig) (driven.Chunker, error) {
	return chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)
}
