package mapper

import (
	"context"
	"errors"
	"time"
)

var ErrModelNotFound = errors.New("model not found")

// SyncState состояние синхронизации локальной модели с удаленной записью.
// Нулевой SyncedAt означает, что модель ни разу не синхронизировалась.
type SyncState struct {
	URI       string    `json:"uri,omitempty"`
	Version   string    `json:"cid,omitempty"`
	SyncedAt  time.Time `json:"synced_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsSynced сообщает, есть ли у модели удаленный адрес
func (s SyncState) IsSynced() bool {
	return s.URI != ""
}

// Model локальная строка, синхронизируемая с удаленной записью
type Model interface {
	ModelType() string
	ModelID() string
	SyncState() SyncState
	SetSyncState(SyncState)
}

// OwnerResolvable модели, которые знают своего владельца
type OwnerResolvable interface {
	OwnerID() (string, bool)
}

// ModelStore доступ слоя ORM к локальным моделям
type ModelStore interface {
	Find(ctx context.Context, modelType, id string) (Model, error)
	FindByURI(ctx context.Context, modelType, uri string) (Model, error)
	Save(ctx context.Context, m Model) error
	Delete(ctx context.Context, m Model) error
}
