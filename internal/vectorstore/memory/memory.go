package memory

import (
	"context"
	"fmt"
	"sync"

	"ragqa/internal/domain"
	"ragqa/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Storage is a simple in-memory vector index using brute-force cosine distance.
// Entries keep their first insertion position; upserting an existing id replaces it in place.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	entries   []domain.IndexedEntry
	byID      map[string]int
}

func NewStorage() *Storage { return &Storage{byID: make(map[string]int)} }

func (s *Storage) Upsert(_ context.Context, entries []domain.IndexedEntry) error {
	dim, err := vectorstore.CheckDimensions(entries)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && dim != s.dimension {
		return fmt.Errorf("%w: index has dimension %d, got %d", domain.ErrInvalidInput, s.dimension, dim)
	}
	s.dimension = dim
	for _, e := range entries {
		e.Vector = append([]float64(nil), e.Vector...)
		if i, ok := s.byID[e.ID]; ok {
			s.entries[i] = e
			continue
		}
		s.byID[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *Storage) Query(_ context.Context, vector []float64, topK int) ([]domain.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrInvalidInput, len(vector), s.dimension)
	}
	return vectorstore.TopK(vector, s.entries, topK), nil
}

func (s *Storage) List(_ context.Context) ([]domain.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Metadata, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Metadata
	}
	return out, nil
}

// Len returns the number of stored entries.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.byID = make(map[string]int)
	s.dimension = 0
	return nil
}
