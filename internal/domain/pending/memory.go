package pending

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore хранилище очереди в памяти процесса
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Store(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = *e
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &e, nil
}

func (s *MemoryStore) ForOwner(_ context.Context, owner string) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0)
	for _, e := range s.entries {
		if e.Owner == owner {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.ID]; !ok {
		return ErrEntryNotFound
	}
	s.entries[e.ID] = *e
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) RemoveForOwner(_ context.Context, owner string) (int, error) {
	return s.removeWhere(func(e Entry) bool { return e.Owner == owner }), nil
}

func (s *MemoryStore) RemoveForModel(_ context.Context, modelType, modelID string) (int, error) {
	return s.removeWhere(func(e Entry) bool {
		return e.ModelType == modelType && e.ModelID == modelID
	}), nil
}

func (s *MemoryStore) RemoveExpired(_ context.Context, before time.Time) (int, error) {
	return s.removeWhere(func(e Entry) bool { return e.CreatedAt.Before(before) }), nil
}

func (s *MemoryStore) CountForOwner(_ context.Context, owner string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if e.Owner == owner {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) HasForOwner(ctx context.Context, owner string) (bool, error) {
	n, err := s.CountForOwner(ctx, owner)
	return n > 0, err
}

func (s *MemoryStore) removeWhere(match func(Entry) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if match(e) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}
