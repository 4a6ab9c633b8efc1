// Package memory хранилища учета синхронизации в памяти процесса (storage_driver=memory).
// Данные теряются при перезапуске.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"reposync/internal/domain/conflict"
	"reposync/internal/domain/importer"
)

// ImportStates importer.Repository в памяти
type ImportStates struct {
	mu     sync.Mutex
	states map[string]importer.State
	seq    int64
	now    func() time.Time
}

func NewImportStates() *ImportStates {
	return &ImportStates{
		states: make(map[string]importer.State),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func stateKey(owner, collection string) string { return owner + "\x00" + collection }

func (s *ImportStates) FindOrCreate(_ context.Context, owner, collection string) (*importer.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[stateKey(owner, collection)]; ok {
		return &st, nil
	}

	s.seq++
	now := s.now()
	st := importer.State{
		ID:         s.seq,
		Owner:      owner,
		Collection: collection,
		Status:     importer.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.states[stateKey(owner, collection)] = st
	return &st, nil
}

func (s *ImportStates) Find(_ context.Context, owner, collection string) (*importer.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[stateKey(owner, collection)]
	if !ok {
		return nil, importer.ErrStateNotFound
	}
	return &st, nil
}

func (s *ImportStates) Save(_ context.Context, state *importer.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = s.now()
	s.states[stateKey(state.Owner, state.Collection)] = *state
	return nil
}

func (s *ImportStates) Delete(_ context.Context, owner, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, stateKey(owner, collection))
	return nil
}

func (s *ImportStates) ListForOwner(_ context.Context, owner string) ([]*importer.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*importer.State, 0)
	for _, st := range s.states {
		if st.Owner == owner {
			st := st
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out, nil
}

// Conflicts conflict.Repository в памяти
type Conflicts struct {
	mu        sync.Mutex
	conflicts map[string]conflict.PendingConflict
}

func NewConflicts() *Conflicts {
	return &Conflicts{conflicts: make(map[string]conflict.PendingConflict)}
}

func (c *Conflicts) Create(_ context.Context, pc *conflict.PendingConflict) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conflicts[pc.ID] = *pc
	return nil
}

func (c *Conflicts) Find(_ context.Context, id string) (*conflict.PendingConflict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pc, ok := c.conflicts[id]
	if !ok {
		return nil, conflict.ErrConflictNotFound
	}
	return &pc, nil
}

func (c *Conflicts) List(_ context.Context, status conflict.Status) ([]*conflict.PendingConflict, error) {
	return c.where(func(pc conflict.PendingConflict) bool {
		return status == "" || pc.Status == status
	}), nil
}

func (c *Conflicts) ListForModel(_ context.Context, modelType, modelID string) ([]*conflict.PendingConflict, error) {
	return c.where(func(pc conflict.PendingConflict) bool {
		return pc.ModelType == modelType && pc.ModelID == modelID
	}), nil
}

func (c *Conflicts) Update(_ context.Context, pc *conflict.PendingConflict) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.conflicts[pc.ID]; !ok {
		return conflict.ErrConflictNotFound
	}
	c.conflicts[pc.ID] = *pc
	return nil
}

// where возвращает копии подходящих конфликтов, старые первыми
func (c *Conflicts) where(match func(conflict.PendingConflict) bool) []*conflict.PendingConflict {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*conflict.PendingConflict, 0)
	for _, pc := range c.conflicts {
		if match(pc) {
			pc := pc
			out = append(out, &pc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
