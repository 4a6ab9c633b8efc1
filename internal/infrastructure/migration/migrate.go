package migration

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	// Blank imports required for database driver registration for migrations
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql
var files embed.FS

// Dialect диалект SQL, для которого есть набор миграций
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Migrator: интерфейс для самой библиотеки migrate.Migrate
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine фабрика мигратора, в тестах подменяется моком
type MigrationEngine func(src source.Driver, databaseURL string) (Migrator, error)

type Migration struct {
	dialect     Dialect
	databaseURL string
	engine      MigrationEngine
}

// NewMigration готовит миграции диалекта. Для sqlite dsn это путь к файлу базы.
func NewMigration(dialect Dialect, dsn string, engine MigrationEngine) *Migration {
	if engine == nil {
		engine = DefaultEngine
	}
	return &Migration{
		dialect:     dialect,
		databaseURL: DatabaseURL(dialect, dsn),
		engine:      engine,
	}
}

// DefaultEngine: реальная реализация для продакшена
func DefaultEngine(src source.Driver, databaseURL string) (Migrator, error) {
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

// Source встроенные миграции диалекта
func Source(dialect Dialect) (source.Driver, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
		return iofs.New(files, "sql/"+string(dialect))
	default:
		return nil, fmt.Errorf("unknown migration dialect %q", dialect)
	}
}

// DatabaseURL адрес базы в форме, понятной драйверу migrate
func DatabaseURL(dialect Dialect, dsn string) string {
	if dialect == DialectSQLite {
		return "sqlite3://" + dsn
	}
	return dsn
}

func (mg *Migration) Up() (err error) {
	src, err := Source(mg.dialect)
	if err != nil {
		return err
	}

	m, err := mg.engine(src, mg.databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration source error: %v", err, serr)
			} else {
				err = serr
			}
		}
		if dberr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration database error: %v", err, dberr)
			} else {
				err = dberr
			}
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w; migration up error", err)
	}
	return nil
}
