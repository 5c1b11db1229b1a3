package catalog

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemoryStore(seed ...Product) *MemoryStore {
	s := &MemoryStore{products: make(map[string]Product, len(seed))}
	for _, p := range seed {
		if p.Slug == "" {
			p.Slug = Slugify(p.Title)
		}
		s.products[p.ID] = p
	}
	return s
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) GetProducts(ctx context.Context, ids []string) (map[string]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertProduct(ctx context.Context, p Product) (Product, error) {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	p.Price = p.Price.Round(2)
	p.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	return p, nil
}
