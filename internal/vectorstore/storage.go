package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"ragqa/internal/domain"
)

// Storage is a VectorIndex that holds resources until closed.
type Storage interface {
	domain.VectorIndex
	Close() error
}

// CosineDistance returns 1 - cos(a, b) clamped to [0,1]. A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	return math.Max(0, math.Min(1, d))
}

// CheckDimensions verifies every entry carries a vector of the same non-zero length
// and returns it.
func CheckDimensions(entries []domain.IndexedEntry) (int, error) {
	dim := 0
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return 0, fmt.Errorf("%w: entry %q has no vector", domain.ErrInvalidInput, e.ID)
		}
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) != dim {
			return 0, fmt.Errorf("%w: vector dimension mismatch for %q", domain.ErrInvalidInput, e.ID)
		}
	}
	return dim, nil
}

// Ranked is a candidate scored against a query vector.
type Ranked struct {
	Entry    domain.IndexedEntry
	Distance float64
}

// TopK ranks candidates by ascending distance to query, keeping insertion order on ties.
func TopK(query []float64, candidates []domain.IndexedEntry, topK int) []domain.RetrievalResult {
	if topK <= 0 {
		topK = 5
	}
	ranked := make([]Ranked, len(candidates))
	for i, e := range candidates {
		ranked[i] = Ranked{Entry: e, Distance: CosineDistance(query, e.Vector)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Distance < ranked[j].Distance })
	if topK > len(ranked) {
		topK = len(ranked)
	}
	results := make([]domain.RetrievalResult, 0, topK)
	for _, r := range ranked[:topK] {
		results = append(results, domain.RetrievalResult{
			Content:  r.Entry.Text,
			Metadata: r.Entry.Metadata,
			Distance: r.Distance,
		})
	}
	return results
}
