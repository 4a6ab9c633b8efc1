// Package sqlite локальное хранилище: учет синхронизации и зеркало удаленных записей.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"reposync/internal/infrastructure/migration"
)

type Storage struct {
	db  *sql.DB
	log *slog.Logger
}

// New открывает файл базы и применяет встроенные миграции
func New(path string, log *slog.Logger) (*Storage, error) {
	if err := migration.NewMigration(migration.DialectSQLite, path, nil).Up(); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// один писатель: SQLite сериализует записи на уровне файла
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Storage{db: db, log: log.With("component", "sqlite_storage")}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) ImportStates() *ImportStates {
	return &ImportStates{db: s.db, log: s.log, now: utcNow}
}

func (s *Storage) PendingSyncs() *PendingSyncs {
	return &PendingSyncs{db: s.db, log: s.log}
}

func (s *Storage) Conflicts() *Conflicts {
	return &Conflicts{db: s.db, log: s.log}
}

func (s *Storage) Records() *Records {
	return &Records{db: s.db, log: s.log, now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// scanner общий интерфейс *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}
