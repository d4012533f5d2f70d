package postprocessors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

func TestNewChunker_FromRuntimeConfig(t *testing.T) {
	cfg := domain.DefaultRuntimeConfig(t.TempDir())
	cfg.ChunkSize = 100
	cfg.ChunkOverlap = 10

	c, err := NewChunker(cfg)
	require.NoError(t, err)
	assert.Equal(t, "chunker", c.Name())

	chunks := c.Chunk("doc", string(make([]rune, 250)))
	require.Len(t, chunks, 3)
	assert.Equal(t, 180, chunks[2].StartOffset)
	assert.Equal(t, 250, chunks[2].EndOffset)
}

func TestNewChunker_InvalidWindow(t *testing.T) {
	cfg := domain.DefaultRuntimeConfig(t.TempDir())
	cfg.ChunkOverlap = cfg.ChunkSize

	_, err := NewChunker(cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
