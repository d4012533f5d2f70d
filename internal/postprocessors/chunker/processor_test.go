package chunker

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

func mustNew(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := mustNew(t)
		if p.ChunkSize() != 512 {
			t.Errorf("expected chunkSize 512, got %d", p.ChunkSize())
		}
		if p.Overlap() != 50 {
			t.Errorf("expected overlap 50, got %d", p.Overlap())
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := mustNew(t, WithChunkSize(500), WithOverlap(0))
		if p.ChunkSize() != 500 || p.Overlap() != 0 {
			t.Errorf("expected 500/0, got %d/%d", p.ChunkSize(), p.Overlap())
		}
	})

	invalid := []struct {
		name string
		opts []Option
	}{
		{"zero chunk size", []Option{WithChunkSize(0)}},
		{"negative overlap", []Option{WithOverlap(-1)}},
		{"overlap equals chunk size", []Option{WithChunkSize(100), WithOverlap(100)}},
		{"overlap exceeds chunk size", []Option{WithChunkSize(100), WithOverlap(150)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	if mustNew(t).Name() != "chunker" {
		t.Error("expected name 'chunker'")
	}
}

func TestChunk_EmptyContent(t *testing.T) {
	chunks := mustNew(t).Chunk("doc", "")
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestChunk_SmallContent(t *testing.T) {
	text := "This is a small piece of content."
	chunks := mustNew(t, WithChunkSize(100), WithOverlap(20)).Chunk("doc", text)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small content, got %d", len(chunks))
	}
	c := chunks[0]
	if c.ID != "doc_chunk_0" || c.DocumentID != "doc" || c.Position != 0 {
		t.Errorf("unexpected chunk identity: %+v", c)
	}
	if c.Content != text || c.StartOffset != 0 || c.EndOffset != len(text) {
		t.Errorf("expected chunk to span whole text, got [%d,%d)", c.StartOffset, c.EndOffset)
	}
}

func TestChunk_ThousandCharacters(t *testing.T) {
	chunks := mustNew(t).Chunk("doc", strings.Repeat("x", 1000))

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantStarts := []int{0, 462, 924}
	for i, c := range chunks {
		if c.StartOffset != wantStarts[i] {
			t.Errorf("chunk %d: expected start %d, got %d", i, wantStarts[i], c.StartOffset)
		}
	}
	if chunks[2].EndOffset != 1000 {
		t.Errorf("expected last end offset 1000, got %d", chunks[2].EndOffset)
	}
	if chunks[0].Len() != 512 || chunks[1].Len() != 512 {
		t.Error("expected non-final chunks to be full size")
	}
}

func TestChunk_TwelveHundredCharacters(t *testing.T) {
	chunks := mustNew(t).Chunk("doc", strings.Repeat("y", 1200))
	if len(chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestChunk_CoverageReconstructsText(t *testing.T) {
	texts := []string{
		"0123456789ABCDEFGHIJ",
		strings.Repeat("lorem ipsum dolor sit amet ", 77),
		"héllo wörld ☃ " + strings.Repeat("日本語", 40),
	}
	p := mustNew(t, WithChunkSize(10), WithOverlap(3))

	for _, text := range texts {
		chunks := p.Chunk("doc", text)
		var b strings.Builder
		covered := 0
		for _, c := range chunks {
			runes := []rune(c.Content)
			if c.EndOffset-c.StartOffset != len(runes) {
				t.Fatalf("offsets [%d,%d) disagree with content length %d", c.StartOffset, c.EndOffset, len(runes))
			}
			if c.StartOffset > covered {
				t.Fatalf("gap before offset %d", c.StartOffset)
			}
			b.WriteString(string(runes[covered-c.StartOffset:]))
			covered = c.EndOffset
		}
		if b.String() != text {
			t.Errorf("reconstructed text differs from source")
		}
	}
}

func TestChunk_MultiByteOffsets(t *testing.T) {
	chunks := mustNew(t, WithChunkSize(4), WithOverlap(1)).Chunk("doc", "ééééééé")
	for _, c := range chunks {
		if got := string([]rune("ééééééé")[c.StartOffset:c.EndOffset]); got != c.Content {
			t.Errorf("offsets [%d,%d) do not match content %q", c.StartOffset, c.EndOffset, c.Content)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	p := mustNew(t, WithChunkSize(64), WithOverlap(16))
	text := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 30)

	first := p.Chunk("doc", text)
	second := p.Chunk("doc", text)

	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical chunks for identical input")
	}
}

func TestChunkID_RoundTrip(t *testing.T) {
	docID := "3f2a_chunk_notes"
	id := ChunkID(docID, 12)

	gotDoc, gotPos, err := ParseChunkID(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDoc != docID || gotPos != 12 {
		t.Errorf("expected (%s, 12), got (%s, %d)", docID, gotDoc, gotPos)
	}

	for _, bad := range []string{"", "nochunk", "_chunk_1", "doc_chunk_x", "doc_chunk_-1"} {
		if _, _, err := ParseChunkID(bad); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for %q, got %v", bad, err)
		}
	}
}
