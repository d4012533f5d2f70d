package domain

import "unicode/utf8"

// DefaultSnippetLength is the number of characters kept in a citation snippet.
const DefaultSnippetLength = 200

// RetrievedChunk represents a single retrieval hit.
type RetrievedChunk struct {
	// Chunk is the matched chunk, resolved through the metadata store.
	Chunk Chunk

	// Score is the cosine similarity. Higher is more relevant.
	Score float64
}

// Citation builds the provenance record for the hit.
func (r RetrievedChunk) Citation() Citation {
	return Citation{
		ChunkID:     r.Chunk.ID,
		DocumentID:  r.Chunk.DocumentID,
		StartOffset: r.Chunk.StartOffset,
		EndOffset:   r.Chunk.EndOffset,
		Snippet:     Snippet(r.Chunk.Content, DefaultSnippetLength),
		Score:       r.Score,
	}
}

// Snippet truncates text to at most n characters, appending an ellipsis
// when it was shortened.
func Snippet(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
