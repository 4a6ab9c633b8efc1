package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposync/internal/domain/conflict"
	"reposync/internal/domain/importer"
)

func TestImportStates(t *testing.T) {
	ctx := context.Background()
	s := NewImportStates()

	st, err := s.FindOrCreate(ctx, "alice", "app.bsky.feed.post")
	require.NoError(t, err)
	assert.Equal(t, importer.StatusPending, st.Status)

	again, err := s.FindOrCreate(ctx, "alice", "app.bsky.feed.post")
	require.NoError(t, err)
	assert.Equal(t, st.ID, again.ID)

	st.Status = importer.StatusInProgress
	st.Cursor = "abc"
	require.NoError(t, s.Save(ctx, st))

	found, err := s.Find(ctx, "alice", "app.bsky.feed.post")
	require.NoError(t, err)
	assert.Equal(t, "abc", found.Cursor)

	_, err = s.FindOrCreate(ctx, "alice", "app.bsky.feed.like")
	require.NoError(t, err)
	list, err := s.ListForOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "app.bsky.feed.like", list[0].Collection)

	require.NoError(t, s.Delete(ctx, "alice", "app.bsky.feed.post"))
	_, err = s.Find(ctx, "alice", "app.bsky.feed.post")
	assert.ErrorIs(t, err, importer.ErrStateNotFound)
}

func TestConflicts(t *testing.T) {
	ctx := context.Background()
	c := NewConflicts()
	now := time.Now().UTC()

	require.NoError(t, c.Create(ctx, &conflict.PendingConflict{ID: "1", ModelType: "post", ModelID: "a", Status: conflict.StatusPending, CreatedAt: now}))
	require.NoError(t, c.Create(ctx, &conflict.PendingConflict{ID: "2", ModelType: "post", ModelID: "b", Status: conflict.StatusDismissed, CreatedAt: now.Add(time.Second)}))

	pending, err := c.List(ctx, conflict.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1", pending[0].ID)

	all, err := c.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	forModel, err := c.ListForModel(ctx, "post", "b")
	require.NoError(t, err)
	require.Len(t, forModel, 1)

	forModel[0].Status = conflict.StatusPending
	require.NoError(t, c.Update(ctx, forModel[0]))
	pending, err = c.List(ctx, conflict.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	assert.ErrorIs(t, c.Update(ctx, &conflict.PendingConflict{ID: "x"}), conflict.ErrConflictNotFound)
	_, err = c.Find(ctx, "x")
	assert.ErrorIs(t, err, conflict.ErrConflictNotFound)
}
