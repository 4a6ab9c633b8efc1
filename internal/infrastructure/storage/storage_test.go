package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"reposync/internal/infrastructure/storage/sqlite"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	log := slog.Default()

	local, err := sqlite.New(filepath.Join(t.TempDir(), "reposync.db"), log)
	require.NoError(t, err)
	defer local.Close()

	t.Run("sqlite", func(t *testing.T) {
		b, err := Open(ctx, DriverSQLite, "", local, log)
		require.NoError(t, err)
		assert.Equal(t, DriverSQLite, b.Driver)
		assert.NotNil(t, b.PendingSyncs)
		assert.NoError(t, b.Close())
	})

	t.Run("empty driver defaults to sqlite", func(t *testing.T) {
		b, err := Open(ctx, "", "", local, log)
		require.NoError(t, err)
		assert.Equal(t, DriverSQLite, b.Driver)
	})

	t.Run("sqlite without local store", func(t *testing.T) {
		_, err := Open(ctx, DriverSQLite, "", nil, log)
		assert.Error(t, err)
	})

	t.Run("memory", func(t *testing.T) {
		b, err := Open(ctx, DriverMemory, "", nil, log)
		require.NoError(t, err)

		st, err := b.ImportStates.FindOrCreate(ctx, "did:plc:alice", "app.bsky.feed.post")
		require.NoError(t, err)
		assert.Equal(t, "did:plc:alice", st.Owner)
		assert.NoError(t, b.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(ctx, "mongo", "", local, log)
		assert.ErrorIs(t, err, ErrUnknownDriver)
	})
}
