// Package storage выбирает хранилище учета синхронизации по драйверу из конфигурации.
// Зеркальные записи всегда живут в локальной SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/conflict"
	"reposync/internal/domain/importer"
	"reposync/internal/domain/pending"
	"reposync/internal/infrastructure/storage/memory"
	"reposync/internal/infrastructure/storage/postgres"
	"reposync/internal/infrastructure/storage/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Bookkeeping хранилища состояний импорта, очереди повторов и конфликтов
type Bookkeeping struct {
	Driver       string
	ImportStates importer.Repository
	PendingSyncs pending.Store
	Conflicts    conflict.Repository

	close func() error
}

func (b *Bookkeeping) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open открывает хранилище учета. Для драйвера sqlite используется local.
func Open(ctx context.Context, driver, databaseURI string, local *sqlite.Storage, log *slog.Logger) (*Bookkeeping, error) {
	switch driver {
	case DriverSQLite, "":
		if local == nil {
			return nil, fmt.Errorf("open %s storage: local store is nil", DriverSQLite)
		}
		return &Bookkeeping{
			Driver:       DriverSQLite,
			ImportStates: local.ImportStates(),
			PendingSyncs: local.PendingSyncs(),
			Conflicts:    local.Conflicts(),
		}, nil
	case DriverPostgres:
		pg, err := postgres.New(ctx, databaseURI, log)
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", DriverPostgres, err)
		}
		return &Bookkeeping{
			Driver:       DriverPostgres,
			ImportStates: pg.ImportStates(),
			PendingSyncs: pg.PendingSyncs(),
			Conflicts:    pg.Conflicts(),
			close:        pg.Close,
		}, nil
	case DriverMemory:
		log.Warn("bookkeeping is kept in memory and will be lost on exit")
		return &Bookkeeping{
			Driver:       DriverMemory,
			ImportStates: memory.NewImportStates(),
			PendingSyncs: pending.NewMemoryStore(),
			Conflicts:    memory.NewConflicts(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
