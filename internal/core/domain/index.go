package domain

import "time"

// MetricCosine is the only supported distance metric. Vectors are
// L2-normalised before storage so inner product equals cosine similarity.
const MetricCosine = "cosine"

// IndexManifest records the embedding space an index was built in.
// It is persisted with the index so provider switches are detectable.
type IndexManifest struct {
	DocID      string
	Provider   AIProvider
	Model      string
	Dimensions int
	Metric     string
	ChunkCount int
	CreatedAt  time.Time
}

// Compatible reports whether vectors produced by the given embedding
// identity can be compared against this index.
func (m IndexManifest) Compatible(provider AIProvider, model string, dimensions int) bool {
	return m.Provider == provider && m.Model == model && m.Dimensions == dimensions
}

// IndexEntry is one vector to add to an index. Row ids are assigned in
// entry order starting at 1.
type IndexEntry struct {
	ChunkID string
	Vector  []float32
}

// VectorHit is one search result from a vector index.
type VectorHit struct {
	// RowID is the 1-based insertion position.
	RowID int64

	// ChunkID is the metadata key for the row.
	ChunkID string

	// Score is the cosine similarity.
	Score float64
}
