// Package testutil содержит фейки хранилищ и удаленного репозитория для тестов доменных пакетов.
package testutil

import (
	"context"
	"sync"
	"time"

	"reposync/internal/domain/mapper"
)

const PostType = "post"

// Post тестовая модель с записью-ссылкой
type Post struct {
	ID        string
	Owner     string
	Text      string
	CreatedAt time.Time
	State     mapper.SyncState
	LinkState mapper.SyncState
}

func (p *Post) ModelType() string               { return PostType }
func (p *Post) ModelID() string                 { return p.ID }
func (p *Post) SyncState() mapper.SyncState     { return p.State }
func (p *Post) SetSyncState(s mapper.SyncState) { p.State = s }
func (p *Post) OwnerID() (string, bool)         { return p.Owner, p.Owner != "" }

// Models ModelStore в памяти
type Models struct {
	mu      sync.Mutex
	items   map[string]mapper.Model
	Saves   int
	SaveErr error
}

func NewModels() *Models {
	return &Models{items: make(map[string]mapper.Model)}
}

func key(modelType, id string) string { return modelType + "/" + id }

func (s *Models) Find(_ context.Context, modelType, id string) (mapper.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[key(modelType, id)]
	if !ok {
		return nil, mapper.ErrModelNotFound
	}
	return m, nil
}

func (s *Models) FindByURI(_ context.Context, modelType, uri string) (mapper.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.items {
		if m.ModelType() == modelType && m.SyncState().URI == uri {
			return m, nil
		}
	}
	return nil, mapper.ErrModelNotFound
}

func (s *Models) Save(_ context.Context, m mapper.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Saves++
	s.items[key(m.ModelType(), m.ModelID())] = m
	return nil
}

func (s *Models) Delete(_ context.Context, m mapper.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key(m.ModelType(), m.ModelID()))
	return nil
}

// Put кладет модель без учета в Saves
func (s *Models) Put(m mapper.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key(m.ModelType(), m.ModelID())] = m
}

func (s *Models) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
