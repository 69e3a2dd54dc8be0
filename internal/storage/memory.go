// internal/storage/memory.go
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valpere/recipevault/pkg/types"
)

// MemoryStore keeps recipes in process memory. Used by tests and by the
// server when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.Recipe
	nextID  int64
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]types.Recipe),
		now:     time.Now,
	}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, r types.Recipe) (*types.Recipe, error) {
	rec := prepare(r, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.URL]; ok {
		existing.ScrapedAt = rec.ScrapedAt
		s.records[rec.URL] = existing
		return copyRecipe(existing), nil
	}

	s.nextID++
	rec.ID = s.nextID
	s.records[rec.URL] = rec
	return copyRecipe(rec), nil
}

// ListAll implements Store.
func (s *MemoryStore) ListAll(_ context.Context) ([]types.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipes := make([]types.Recipe, 0, len(s.records))
	for _, r := range s.records {
		recipes = append(recipes, *copyRecipe(r))
	}
	sort.Slice(recipes, func(i, j int) bool {
		if !recipes[i].CreatedAt.Equal(recipes[j].CreatedAt) {
			return recipes[i].CreatedAt.After(recipes[j].CreatedAt)
		}
		return recipes[i].ID > recipes[j].ID
	})
	return recipes, nil
}

// DeleteByURL implements Store.
func (s *MemoryStore) DeleteByURL(_ context.Context, url string) (*types.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[url]
	if !ok {
		return nil, nil
	}
	delete(s.records, url)
	return copyRecipe(existing), nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func copyRecipe(r types.Recipe) *types.Recipe {
	r.Ingredients = append([]string{}, r.Ingredients...)
	r.Instructions = append([]string{}, r.Instructions...)
	if r.Image != nil {
		img := *r.Image
		r.Image = &img
	}
	return &r
}
