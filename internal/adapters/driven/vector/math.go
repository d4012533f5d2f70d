package vector

import (
	"math"
	"sort"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// Normalize returns v scaled to unit length. A zero vector is returned as
// zeros and scores 0 against everything.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Dot returns the dot product of two vectors of equal length.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Rank orders hits by descending score, ties by ascending row id, and
// keeps at most k.
func Rank(hits []domain.VectorHit, k int) []domain.VectorHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].RowID < hits[j].RowID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}
