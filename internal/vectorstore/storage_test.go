package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ragqa/internal/domain"
)

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float64{1, 0}, []float64{2, 0}), 1e-12)
	assert.InDelta(t, 1.0, CosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.InDelta(t, 1.0, CosineDistance([]float64{0, 0}, []float64{0, 1}), 1e-12)
	assert.Equal(t, 1.0, CosineDistance([]float64{1, 0}, []float64{-1, 0}), "clamped to 1")
}

func TestCheckDimensions(t *testing.T) {
	dim, err := CheckDimensions([]domain.IndexedEntry{{ID: "a", Vector: []float64{1, 2}}, {ID: "b", Vector: []float64{3, 4}}})
	assert.NoError(t, err)
	assert.Equal(t, 2, dim)

	_, err = CheckDimensions([]domain.IndexedEntry{{ID: "a", Vector: []float64{1, 2}}, {ID: "b", Vector: []float64{3}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = CheckDimensions([]domain.IndexedEntry{{ID: "a"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTopK(t *testing.T) {
	entries := []domain.IndexedEntry{
		{ID: "far", Vector: []float64{0, 1}, Text: "far"},
		{ID: "near", Vector: []float64{1, 0.1}, Text: "near"},
		{ID: "tie-a", Vector: []float64{1, 1}, Text: "tie-a"},
		{ID: "tie-b", Vector: []float64{1, 1}, Text: "tie-b"},
	}
	got := TopK([]float64{1, 0}, entries, 3)
	assert.Len(t, got, 3)
	assert.Equal(t, "near", got[0].Content)
	assert.Equal(t, "tie-a", got[1].Content)
	assert.Equal(t, "tie-b", got[2].Content)
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)

	assert.Len(t, TopK([]float64{1, 0}, entries, 10), 4)
	assert.Empty(t, TopK([]float64{1, 0}, nil, 3))
}
