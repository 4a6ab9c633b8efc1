package remote

import (
	"context"
)

// Repository операции удаленного репозитория записей.
// Все методы блокирующие и выполняют сетевые запросы.
type Repository interface {
	ListRecords(ctx context.Context, owner, collection, cursor string, limit int) (*Page, error)
	CreateRecord(ctx context.Context, owner, collection string, record Record) (*WriteResult, error)
	PutRecord(ctx context.Context, owner, collection, rkey string, record Record) (*WriteResult, error)
	DeleteRecord(ctx context.Context, owner, collection, rkey string) error
}

// Resolver определяет сетевой адрес репозитория владельца
type Resolver interface {
	ResolveEndpoint(ctx context.Context, owner string) (string, error)
}
