package products

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory ProductStore used in tests and local development.
type MemStore struct {
	mu    sync.Mutex
	items map[string]Product
}

func NewMemStore() *MemStore {
	return &MemStore{items: make(map[string]Product)}
}

func (s *MemStore) Create(ctx context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = *p
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (s *MemStore) List(ctx context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []Product{}
	for _, p := range s.items {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *MemStore) Update(ctx context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.ID]; !ok {
		return ErrProductNotFound
	}
	s.items[p.ID] = *p
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrProductNotFound
	}
	delete(s.items, id)
	return nil
}
