package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/conflict"
	"reposync/internal/domain/importer"
	"reposync/internal/domain/pending"
)

// newStorage подключается к testDatabaseURI; без базы тест пропускается
func newStorage(t *testing.T) *Storage {
	t.Helper()
	if testDatabaseURI == "" {
		t.Skip("no postgres: set REPOSYNC_TEST_DATABASE_URI or start docker")
	}

	s, err := New(context.Background(), testDatabaseURI, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	assert.Equal(t, "x", *nullable("x"))
	assert.Equal(t, "", deref(nil))
	assert.Equal(t, "x", deref(nullable("x")))
}

func TestImportStateRepository(t *testing.T) {
	ctx := context.Background()
	repo := newStorage(t).ImportStates()
	owner := "did:plc:" + uuid.NewString()

	st, err := repo.FindOrCreate(ctx, owner, "app.bsky.feed.post")
	require.NoError(t, err)
	assert.Equal(t, importer.StatusPending, st.Status)

	again, err := repo.FindOrCreate(ctx, owner, "app.bsky.feed.post")
	require.NoError(t, err)
	assert.Equal(t, st.ID, again.ID)

	now := time.Now().UTC()
	st.Status = importer.StatusCompleted
	st.Synced = 250
	st.CompletedAt = &now
	require.NoError(t, repo.Save(ctx, st))

	found, err := repo.Find(ctx, owner, "app.bsky.feed.post")
	require.NoError(t, err)
	assert.Equal(t, importer.StatusCompleted, found.Status)
	assert.Equal(t, 250, found.Synced)
	require.NotNil(t, found.CompletedAt)

	require.NoError(t, repo.Delete(ctx, owner, "app.bsky.feed.post"))
	_, err = repo.Find(ctx, owner, "app.bsky.feed.post")
	assert.ErrorIs(t, err, importer.ErrStateNotFound)
}

func TestPendingSyncRepository(t *testing.T) {
	ctx := context.Background()
	repo := newStorage(t).PendingSyncs()
	owner := "did:plc:" + uuid.NewString()

	e := &pending.Entry{
		ID:        uuid.NewString(),
		Owner:     owner,
		ModelType: "app.bsky.feed.post",
		ModelID:   "1",
		Operation: pending.OpResync,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Store(ctx, e))

	e.Attempts = 1
	require.NoError(t, repo.Update(ctx, e))

	entries, err := repo.ForOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.Equal(t, pending.OpResync, entries[0].Operation)

	n, err := repo.RemoveForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConflictRepository(t *testing.T) {
	ctx := context.Background()
	repo := newStorage(t).Conflicts()

	pc := &conflict.PendingConflict{
		ID:             uuid.NewString(),
		ModelType:      "app.bsky.feed.post",
		ModelID:        uuid.NewString(),
		URI:            "at://did:plc:alice/app.bsky.feed.post/1",
		LocalSnapshot:  json.RawMessage(`{"text":"local"}`),
		RemoteSnapshot: json.RawMessage(`{"text":"remote"}`),
		Status:         conflict.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, pc))

	forModel, err := repo.ListForModel(ctx, pc.ModelType, pc.ModelID)
	require.NoError(t, err)
	require.Len(t, forModel, 1)
	assert.JSONEq(t, `{"text":"local"}`, string(forModel[0].LocalSnapshot))

	pc.Status = conflict.StatusDismissed
	require.NoError(t, repo.Update(ctx, pc))

	found, err := repo.Find(ctx, pc.ID)
	require.NoError(t, err)
	assert.Equal(t, conflict.StatusDismissed, found.Status)
}
