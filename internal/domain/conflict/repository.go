package conflict

import (
	"context"
)

// Repository хранилище отложенных конфликтов
type Repository interface {
	Create(ctx context.Context, c *PendingConflict) error
	Find(ctx context.Context, id string) (*PendingConflict, error)
	// List возвращает конфликты со статусом; пустой статус означает все
	List(ctx context.Context, status Status) ([]*PendingConflict, error)
	ListForModel(ctx context.Context, modelType, modelID string) ([]*PendingConflict, error)
	Update(ctx context.Context, c *PendingConflict) error
}
