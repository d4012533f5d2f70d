// Package chunker provides a fixed-size sliding window text chunker.
//
// Offsets are measured in characters (runes), so multi-byte text never
// splits inside a code point and citations index the text the user reads.
package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

const chunkIDSeparator = "_chunk_"

// Processor splits document text into overlapping fixed-size chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunker. The window must satisfy 0 <= overlap < size.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, p.chunkSize)
	}
	if p.overlap < 0 || p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d",
			domain.ErrInvalidInput, p.chunkSize, p.overlap)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits text into chunks owned by docID. Windows start at 0 and
// advance by size-overlap until a window would start at or past the end.
// Empty text yields no chunks.
func (p *Processor) Chunk(docID, text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	textLen := len(runes)
	step := p.chunkSize - p.overlap

	chunks := make([]domain.Chunk, 0, textLen/step+1)

	for start, position := 0, 0; start < textLen; start, position = start+step, position+1 {
		end := start + p.chunkSize
		if end > textLen {
			end = textLen
		}

		chunks = append(chunks, domain.Chunk{
			ID:          ChunkID(docID, position),
			DocumentID:  docID,
			Content:     string(runes[start:end]),
			Position:    position,
			StartOffset: start,
			EndOffset:   end,
		})
	}

	return chunks
}

// ChunkID derives the chunk identifier from its document and position.
func ChunkID(docID string, position int) string {
	return docID + chunkIDSeparator + strconv.Itoa(position)
}

// ParseChunkID splits a chunk identifier into document ID and position.
func ParseChunkID(chunkID string) (string, int, error) {
	i := strings.LastIndex(chunkID, chunkIDSeparator)
	if i <= 0 {
		return "", 0, fmt.Errorf("%w: malformed chunk id %q", domain.ErrInvalidInput, chunkID)
	}
	position, err := strconv.Atoi(chunkID[i+len(chunkIDSeparator):])
	if err != nil || position < 0 {
		return "", 0, fmt.Errorf("%w: malformed chunk id %q", domain.ErrInvalidInput, chunkID)
	}
	return chunkID[:i], position, nil
}
