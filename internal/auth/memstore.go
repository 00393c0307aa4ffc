package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory UserStore used in tests and local development.
// It honors the same contract as the Postgres store: email uniqueness is
// enforced atomically under the store's lock, so concurrent Creates with the
// same address yield exactly one success.
type MemStore struct {
	mu     sync.Mutex
	users  map[string]User
	emails map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:  make(map[string]User),
		emails: make(map[string]string),
	}
}

func (s *MemStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := NormalizeEmail(u.Email)
	if _, taken := s.emails[key]; taken {
		return ErrEmailTaken
	}
	s.emails[key] = u.ID
	s.users[u.ID] = *u
	return nil
}

func (s *MemStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *MemStore) GetByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (s *MemStore) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []User{}
	q := strings.ToLower(f.Query)
	for _, u := range s.users {
		if q != "" &&
			!strings.Contains(strings.ToLower(u.Name), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	start := f.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *MemStore) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	oldKey := NormalizeEmail(old.Email)
	newKey := NormalizeEmail(u.Email)
	if oldKey != newKey {
		if _, taken := s.emails[newKey]; taken {
			return ErrEmailTaken
		}
		delete(s.emails, oldKey)
		s.emails[newKey] = u.ID
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(s.emails, NormalizeEmail(u.Email))
	delete(s.users, id)
	return nil
}
