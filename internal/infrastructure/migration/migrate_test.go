package migration

import (
	"errors"
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMigrator: мок для интерфейса Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func TestMigration_Up_Success(t *testing.T) {
	mockM := new(MockMigrator)

	// Настраиваем поведение
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(nil, nil)

	var gotURL string
	engine := func(_ source.Driver, db string) (Migrator, error) {
		gotURL = db
		return mockM, nil
	}

	mg := NewMigration(DialectSQLite, "/tmp/reposync.db", engine)
	err := mg.Up()

	assert.NoError(t, err)
	assert.Equal(t, "sqlite3:///tmp/reposync.db", gotURL)
	mockM.AssertExpectations(t)
}

func TestMigration_Up_NoChange(t *testing.T) {
	mockM := new(MockMigrator)

	// ErrNoChange не должна считаться ошибкой в методе Up()
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Close").Return(nil, nil)

	engine := func(source.Driver, string) (Migrator, error) {
		return mockM, nil
	}

	mg := NewMigration(DialectPostgres, "postgres://localhost/reposync", engine)
	err := mg.Up()

	assert.NoError(t, err)
}

func TestMigration_Up_CloseError(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(errors.New("dirty database"))
	mockM.On("Close").Return(nil, errors.New("connection lost"))

	engine := func(source.Driver, string) (Migrator, error) {
		return mockM, nil
	}

	err := NewMigration(DialectPostgres, "postgres://localhost/reposync", engine).Up()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty database")
	assert.Contains(t, err.Error(), "connection lost")
}

func TestMigration_Up_EngineError(t *testing.T) {
	// Ошибка на этапе создания мигратора (например, неверный драйвер)
	engine := func(source.Driver, string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	mg := NewMigration(DialectSQLite, "reposync.db", engine)
	err := mg.Up()

	assert.Error(t, err)
	assert.Equal(t, "engine crash", err.Error())
}

func TestSource(t *testing.T) {
	for _, d := range []Dialect{DialectSQLite, DialectPostgres} {
		src, err := Source(d)
		require.NoError(t, err, d)

		version, err := src.First()
		require.NoError(t, err, d)
		assert.Equal(t, uint(1), version)

		r, _, err := src.ReadUp(version)
		require.NoError(t, err, d)
		body, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Contains(t, string(body), "pending_syncs")
		_ = r.Close()
	}

	_, err := Source("mysql")
	assert.Error(t, err)
}
