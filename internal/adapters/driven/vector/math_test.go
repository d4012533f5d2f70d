package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 11.0, Dot([]float32{1, 2}, []float32{3, 4}), 1e-9)
}

func TestRank(t *testing.T) {
	hits := []domain.VectorHit{
		{RowID: 3, Score: 0.5},
		{RowID: 1, Score: 0.9},
		{RowID: 4, Score: 0.9},
		{RowID: 2, Score: 0.5},
	}

	got := Rank(hits, 3)

	assert.Equal(t, []int64{1, 4, 2}, []int64{got[0].RowID, got[1].RowID, got[2].RowID})
}

func TestRank_KLargerThanHits(t *testing.T) {
	got := Rank([]domain.VectorHit{{RowID: 1, Score: 1}}, 10)
	assert.Len(t, got, 1)
}
