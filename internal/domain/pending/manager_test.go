package pending

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/event"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/publish"
	"reposync/internal/domain/remote"
	"reposync/internal/testutil"
)

const owner = "did:plc:alice"

type fixture struct {
	store   *MemoryStore
	remote  *testutil.Remote
	models  *testutil.Models
	events  *testutil.Recorder
	posts   *testutil.PostMapper
	engine  *publish.Engine
	manager *Manager
	now     time.Time
}

func newFixture(t *testing.T, config *Config) *fixture {
	t.Helper()

	f := &fixture{
		store:  NewMemoryStore(),
		remote: testutil.NewRemote(),
		models: testutil.NewModels(),
		events: &testutil.Recorder{},
		now:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	reg, posts, _ := testutil.NewRegistry(f.models)
	f.posts = posts
	f.engine = publish.NewEngine(f.remote, f.models, f.events, slog.Default())
	refs := publish.NewReferenceEngine(f.engine, f.events, slog.Default())

	f.manager = NewManager(f.store, f.engine, refs, reg, f.models, f.events, slog.Default(), config)
	f.manager.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) post(id string) *testutil.Post {
	p := &testutil.Post{ID: id, Owner: owner, Text: "post " + id, State: mapper.SyncState{UpdatedAt: f.now}}
	f.models.Put(p)
	return p
}

func (f *fixture) capture(t *testing.T, p *testutil.Post, op Operation, ref string) *Entry {
	t.Helper()
	e, err := f.manager.Capture(context.Background(), owner, p, op, ref)
	require.NoError(t, err)
	return e
}

func TestManager_Capture(t *testing.T) {
	f := newFixture(t, nil)
	p := f.post("1")

	first := f.capture(t, p, OpSync, "")
	second := f.capture(t, p, OpResync, "")

	assert.NotEqual(t, first.ID, second.ID)

	entries, err := f.manager.Entries(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, entries, 1, "one live entry per model")
	assert.Equal(t, OpResync, entries[0].Operation)
	assert.Zero(t, entries[0].Attempts)

	assert.Len(t, f.events.Named(event.NamePendingCaptured), 2)
}

func TestManager_Capture_Validation(t *testing.T) {
	f := newFixture(t, nil)
	p := f.post("1")

	_, err := f.manager.Capture(context.Background(), owner, p, Operation("merge"), "")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = f.manager.Capture(context.Background(), owner, p, OpSyncWithReference, "")
	assert.ErrorIs(t, err, ErrReferenceRequired)

	has, err := f.manager.Has(context.Background(), owner)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestManager_RetryForOwner_Success(t *testing.T) {
	f := newFixture(t, nil)
	f.capture(t, f.post("1"), OpSync, "")
	f.capture(t, f.post("2"), OpSyncWithReference, testutil.LinkMapperID)

	res, err := f.manager.RetryForOwner(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 2, f.remote.Count(owner, testutil.PostCollection))
	assert.Equal(t, 1, f.remote.Count(owner, testutil.LinkCollection))

	n, err := f.manager.Count(context.Background(), owner)
	require.NoError(t, err)
	assert.Zero(t, n)

	retried := f.events.Named(event.NamePendingRetried)
	require.Len(t, retried, 2)
	assert.True(t, retried[0].(event.PendingRetried).Success)
}

func TestManager_RetryForOwner_FailureKeepsEntry(t *testing.T) {
	f := newFixture(t, nil)
	f.capture(t, f.post("1"), OpSync, "")
	f.remote.ErrFor[testutil.PostCollection] = &remote.APIError{Status: http.StatusBadGateway, Message: "upstream down"}

	res, err := f.manager.RetryForOwner(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "upstream down")

	entries, err := f.manager.Entries(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)

	retried := f.events.Named(event.NamePendingRetried)
	require.Len(t, retried, 1)
	assert.False(t, retried[0].(event.PendingRetried).Success)
}

func TestManager_RetryForOwner_Exhausted(t *testing.T) {
	f := newFixture(t, &Config{MaxAttempts: 3, TTL: 24 * time.Hour})
	f.capture(t, f.post("1"), OpSync, "")
	f.remote.ErrFor[testutil.PostCollection] = errors.New("still failing")

	for i := 0; i < 3; i++ {
		res, err := f.manager.RetryForOwner(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
	}
	assert.Equal(t, 3, f.remote.Creates)

	res, err := f.manager.RetryForOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 3, f.remote.Creates, "exhausted entry is not dispatched")

	has, err := f.manager.Has(context.Background(), owner)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestManager_RetryForOwner_Expired(t *testing.T) {
	f := newFixture(t, &Config{MaxAttempts: 5, TTL: time.Hour})
	f.capture(t, f.post("1"), OpSync, "")

	f.now = f.now.Add(2 * time.Hour)
	res, err := f.manager.RetryForOwner(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, f.remote.Creates)
}

func TestManager_RetryForOwner_AuthStops(t *testing.T) {
	f := newFixture(t, nil)
	f.capture(t, f.post("1"), OpSync, "")
	f.now = f.now.Add(time.Second)
	f.capture(t, f.post("2"), OpSync, "")
	f.remote.ErrFor[testutil.PostCollection] = &remote.APIError{Status: http.StatusBadRequest, Code: "ExpiredToken", Message: "token has expired"}

	res, err := f.manager.RetryForOwner(context.Background(), owner)

	require.Error(t, err)
	assert.True(t, remote.IsAuth(err))
	assert.Equal(t, 1, f.remote.Creates, "second entry is not attempted")
	assert.Zero(t, res.Failed)

	n, err := f.manager.Count(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestManager_RetryForOwner_ModelGone(t *testing.T) {
	f := newFixture(t, nil)
	p := f.post("1")
	f.capture(t, p, OpResync, "")
	require.NoError(t, f.models.Delete(context.Background(), p))

	res, err := f.manager.RetryForOwner(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Succeeded)
	assert.Zero(t, f.remote.Puts)
}

func TestManager_RetryForOwner_UnsyncDeletedModel(t *testing.T) {
	f := newFixture(t, nil)
	p := f.post("1")
	require.True(t, f.engine.SyncAs(context.Background(), owner, p, f.posts).Success)

	f.remote.DeleteErr = errors.New("timeout")
	require.Error(t, f.engine.TryUnsync(context.Background(), p, f.posts))
	entry := f.capture(t, p, OpUnsync, "")
	assert.Equal(t, p.State.URI, entry.URI)

	require.NoError(t, f.models.Delete(context.Background(), p))
	f.remote.DeleteErr = nil

	res, err := f.manager.RetryForOwner(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Succeeded)
	assert.Zero(t, f.remote.Count(owner, testutil.PostCollection))
}

func TestManager_RetryForOwner_UnsyncAlreadyGone(t *testing.T) {
	f := newFixture(t, nil)
	p := f.post("1")
	f.capture(t, p, OpUnsync, "")

	res, err := f.manager.RetryForOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded, "nothing to delete")
}

func TestManager_RetryForOwner_Cancelled(t *testing.T) {
	f := newFixture(t, nil)
	f.capture(t, f.post("1"), OpSync, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.manager.RetryForOwner(ctx, owner)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.remote.Creates)
}

func TestManager_PruneAndClear(t *testing.T) {
	f := newFixture(t, &Config{MaxAttempts: 5, TTL: time.Hour})
	f.capture(t, f.post("1"), OpSync, "")
	f.now = f.now.Add(90 * time.Minute)
	f.capture(t, f.post("2"), OpSync, "")

	n, err := f.manager.PruneExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.manager.Clear(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
