// Package postgres долговременное хранилище учета синхронизации на PostgreSQL:
// состояния импорта, очередь повторов и отложенные конфликты.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"reposync/internal/infrastructure/migration"
)

type Storage struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func New(ctx context.Context, databaseURI string, log *slog.Logger) (*Storage, error) {
	mg := migration.NewMigration(migration.DialectPostgres, databaseURI, nil)
	if err := mg.Up(); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Storage{pool: pool, log: log}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Storage) ImportStates() *ImportStateRepository {
	return NewImportStateRepository(s.pool, s.log)
}

func (s *Storage) PendingSyncs() *PendingSyncRepository {
	return NewPendingSyncRepository(s.pool, s.log)
}

func (s *Storage) Conflicts() *ConflictRepository {
	return NewConflictRepository(s.pool, s.log)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
