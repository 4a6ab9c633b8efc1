package importer

import (
	"context"
)

// Repository хранилище состояний импорта
type Repository interface {
	// FindOrCreate возвращает состояние пары, создавая его в статусе pending
	FindOrCreate(ctx context.Context, owner, collection string) (*State, error)
	Find(ctx context.Context, owner, collection string) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, owner, collection string) error
	ListForOwner(ctx context.Context, owner string) ([]*State, error)
}
