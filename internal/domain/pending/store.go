package pending

import (
	"context"
	"time"
)

// Store хранилище отложенных операций.
// Каждая операция атомарна для отдельной записи; очереди разных владельцев независимы.
type Store interface {
	Store(ctx context.Context, e *Entry) error
	Find(ctx context.Context, id string) (*Entry, error)
	// ForOwner возвращает записи владельца в порядке захвата
	ForOwner(ctx context.Context, owner string) ([]*Entry, error)
	Update(ctx context.Context, e *Entry) error
	Remove(ctx context.Context, id string) error
	RemoveForOwner(ctx context.Context, owner string) (int, error)
	RemoveForModel(ctx context.Context, modelType, modelID string) (int, error)
	// RemoveExpired удаляет записи, созданные раньше before
	RemoveExpired(ctx context.Context, before time.Time) (int, error)
	CountForOwner(ctx context.Context, owner string) (int, error)
	HasForOwner(ctx context.Context, owner string) (bool, error)
}
