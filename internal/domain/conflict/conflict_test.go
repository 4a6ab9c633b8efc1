package conflict

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/event"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/publish"
	"reposync/internal/domain/remote"
	"reposync/internal/testutil"
)

const (
	owner   = "did:plc:alice"
	postURI = "at://did:plc:alice/app.bsky.feed.post/3k000001"
)

type memRepository struct {
	mu        sync.Mutex
	conflicts map[string]PendingConflict
}

func newMemRepository() *memRepository {
	return &memRepository{conflicts: make(map[string]PendingConflict)}
}

func (r *memRepository) Create(_ context.Context, c *PendingConflict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts[c.ID] = *c
	return nil
}

func (r *memRepository) Find(_ context.Context, id string) (*PendingConflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conflicts[id]
	if !ok {
		return nil, ErrConflictNotFound
	}
	return &c, nil
}

func (r *memRepository) List(_ context.Context, status Status) ([]*PendingConflict, error) {
	return r.where(func(c PendingConflict) bool { return status == "" || c.Status == status }), nil
}

func (r *memRepository) ListForModel(_ context.Context, modelType, modelID string) ([]*PendingConflict, error) {
	return r.where(func(c PendingConflict) bool { return c.ModelType == modelType && c.ModelID == modelID }), nil
}

func (r *memRepository) Update(_ context.Context, c *PendingConflict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conflicts[c.ID]; !ok {
		return ErrConflictNotFound
	}
	r.conflicts[c.ID] = *c
	return nil
}

func (r *memRepository) where(match func(PendingConflict) bool) []*PendingConflict {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*PendingConflict
	for _, c := range r.conflicts {
		if match(c) {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MockPublisher is a mock implementation of the Publisher interface for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Resync(ctx context.Context, model mapper.Model, rm mapper.RecordMapper) publish.Result {
	args := m.Called(ctx, model, rm)
	return args.Get(0).(publish.Result)
}

func syncedPost(syncedAt, updatedAt time.Time) *testutil.Post {
	return &testutil.Post{
		ID:    "3k000001",
		Owner: owner,
		Text:  "local text",
		State: mapper.SyncState{URI: postURI, Version: "bafy1", SyncedAt: syncedAt, UpdatedAt: updatedAt},
	}
}

func TestHasLocalChanges(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state mapper.SyncState
		want  bool
	}{
		{name: "never synced", state: mapper.SyncState{UpdatedAt: base}, want: true},
		{name: "no update timestamp", state: mapper.SyncState{SyncedAt: base}, want: false},
		{name: "updated after sync", state: mapper.SyncState{SyncedAt: base, UpdatedAt: base.Add(time.Second)}, want: true},
		{name: "updated at sync instant", state: mapper.SyncState{SyncedAt: base, UpdatedAt: base}, want: false},
		{name: "updated before sync", state: mapper.SyncState{SyncedAt: base, UpdatedAt: base.Add(-time.Second)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasLocalChanges(tt.state))
		})
	}
}

func TestHasConflict(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := remote.Record{"text": "remote text"}

	clean := syncedPost(base, base)
	assert.False(t, HasConflict(clean, rec, "bafy2"), "no local changes")

	dirty := syncedPost(base, base.Add(time.Minute))
	assert.True(t, HasConflict(dirty, rec, "bafy2"), "local changes and new version")
	assert.False(t, HasConflict(dirty, rec, "bafy1"), "same version as last seen")

	fresh := &testutil.Post{ID: "new", State: mapper.SyncState{UpdatedAt: base}}
	assert.True(t, HasConflict(fresh, rec, "bafy2"), "never synced")
}

type resolverFixture struct {
	repo     *memRepository
	models   *testutil.Models
	posts    *testutil.PostMapper
	events   *testutil.Recorder
	resolver *Resolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		repo:   newMemRepository(),
		models: testutil.NewModels(),
		events: &testutil.Recorder{},
	}
	_, f.posts, _ = testutil.NewRegistry(f.models)
	f.resolver = NewResolver(f.repo, f.events, slog.Default())
	return f
}

func TestResolver_NewestWins(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		localAt    time.Time
		remoteAt   string
		wantWinner Side
	}{
		{name: "local strictly newer", localAt: base.Add(time.Second), remoteAt: base.Format(time.RFC3339Nano), wantWinner: SideLocal},
		{name: "equal timestamps", localAt: base, remoteAt: base.Format(time.RFC3339Nano), wantWinner: SideRemote},
		{name: "remote newer", localAt: base, remoteAt: base.Add(time.Second).Format(time.RFC3339Nano), wantWinner: SideRemote},
		{name: "remote timestamp missing", localAt: base, remoteAt: "", wantWinner: SideRemote},
		{name: "remote timestamp unparsable", localAt: base, remoteAt: "yesterday", wantWinner: SideRemote},
		{name: "local timestamp missing", remoteAt: base.Format(time.RFC3339Nano), wantWinner: SideRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolverFixture(t)
			p := syncedPost(base.Add(-time.Hour), tt.localAt)
			f.models.Put(p)

			rec := remote.Record{"text": "remote text"}
			if tt.remoteAt != "" {
				rec["createdAt"] = tt.remoteAt
			}

			res, err := f.resolver.Resolve(context.Background(), p, rec, remote.Meta{URI: postURI, Version: "bafy2"}, f.posts, StrategyNewestWins)
			require.NoError(t, err)

			assert.True(t, res.Resolved)
			assert.Equal(t, tt.wantWinner, res.Winner)
			if tt.wantWinner == SideLocal {
				assert.Equal(t, "local text", p.Text)
			} else {
				assert.Equal(t, "remote text", p.Text)
				assert.Equal(t, "bafy2", p.State.Version)
			}
		})
	}
}

func TestResolver_RemoteAndLocalWins(t *testing.T) {
	f := newResolverFixture(t)
	p := syncedPost(time.Now().Add(-time.Hour), time.Now())
	f.models.Put(p)
	meta := remote.Meta{URI: postURI, Version: "bafy2"}

	res, err := f.resolver.Resolve(context.Background(), p, remote.Record{"text": "kept local"}, meta, f.posts, StrategyLocalWins)
	require.NoError(t, err)
	assert.Equal(t, SideLocal, res.Winner)
	assert.Equal(t, "local text", p.Text)

	res, err = f.resolver.Resolve(context.Background(), p, remote.Record{"text": "from remote"}, meta, f.posts, StrategyRemoteWins)
	require.NoError(t, err)
	assert.Equal(t, SideRemote, res.Winner)
	assert.Equal(t, "from remote", p.Text)
	assert.Same(t, p, res.Model)
}

func TestResolver_Manual(t *testing.T) {
	f := newResolverFixture(t)
	p := syncedPost(time.Now().Add(-time.Hour), time.Now())
	f.models.Put(p)
	meta := remote.Meta{URI: postURI, Version: "bafy2"}

	res, err := f.resolver.Resolve(context.Background(), p, remote.Record{"text": "remote v2"}, meta, f.posts, StrategyManual)
	require.NoError(t, err)

	assert.False(t, res.Resolved)
	assert.Equal(t, StrategyManual, res.Strategy)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, "local text", p.Text)
	assert.Equal(t, "bafy1", p.State.Version)

	var local, remoteSnap map[string]any
	require.NoError(t, json.Unmarshal(res.Conflict.LocalSnapshot, &local))
	require.NoError(t, json.Unmarshal(res.Conflict.RemoteSnapshot, &remoteSnap))
	assert.Equal(t, "local text", local["text"])
	assert.Equal(t, "remote v2", remoteSnap["text"])

	// a newer remote version for the same model refreshes the open conflict
	meta.Version = "bafy3"
	res2, err := f.resolver.Resolve(context.Background(), p, remote.Record{"text": "remote v3"}, meta, f.posts, StrategyManual)
	require.NoError(t, err)
	assert.Equal(t, res.Conflict.ID, res2.Conflict.ID)

	all, err := f.repo.List(context.Background(), StatusPending)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "bafy3", all[0].RemoteVersion)
	assert.Len(t, f.events.Named(event.NameConflictDetected), 2)
}

func TestResolver_UnknownStrategy(t *testing.T) {
	f := newResolverFixture(t)
	p := syncedPost(time.Now(), time.Now())

	_, err := f.resolver.Resolve(context.Background(), p, remote.Record{}, remote.Meta{URI: postURI}, f.posts, Strategy("coin_flip"))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"remote_wins": StrategyRemoteWins,
		"server":      StrategyRemoteWins,
		"client":      StrategyLocalWins,
		"Local":       StrategyLocalWins,
		"newer":       StrategyNewestWins,
		" manual ":    StrategyManual,
	}
	for in, want := range tests {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStrategy("random")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func manualConflict(t *testing.T, f *resolverFixture, p *testutil.Post) *PendingConflict {
	t.Helper()
	res, err := f.resolver.Resolve(context.Background(), p, remote.Record{"text": "remote text"},
		remote.Meta{URI: postURI, Version: "bafy2"}, f.posts, StrategyManual)
	require.NoError(t, err)
	return res.Conflict
}

func TestService_ResolveWithLocal(t *testing.T) {
	f := newResolverFixture(t)
	reg, _, _ := testutil.NewRegistry(f.models)
	p := syncedPost(time.Now().Add(-time.Hour), time.Now())
	f.models.Put(p)
	pc := manualConflict(t, f, p)

	pub := new(MockPublisher)
	pub.On("Resync", mock.Anything, p, mock.Anything).Return(publish.Result{Success: true, URI: postURI, Version: "bafy9"})

	svc := NewService(f.repo, reg, f.models, pub, slog.Default())
	closed, err := svc.ResolveWithLocal(context.Background(), pc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusResolved, closed.Status)
	assert.Equal(t, SideLocal, closed.Resolution)
	assert.NotNil(t, closed.ResolvedAt)
	pub.AssertExpectations(t)

	_, err = svc.ResolveWithLocal(context.Background(), pc.ID)
	assert.ErrorIs(t, err, ErrConflictClosed)
}

func TestService_ResolveWithLocal_PublishFailure(t *testing.T) {
	f := newResolverFixture(t)
	reg, _, _ := testutil.NewRegistry(f.models)
	p := syncedPost(time.Now().Add(-time.Hour), time.Now())
	f.models.Put(p)
	pc := manualConflict(t, f, p)

	pub := new(MockPublisher)
	pub.On("Resync", mock.Anything, p, mock.Anything).
		Return(publish.Result{Error: "put record: timeout", Err: errors.New("timeout")})

	svc := NewService(f.repo, reg, f.models, pub, slog.Default())
	_, err := svc.ResolveWithLocal(context.Background(), pc.ID)
	assert.ErrorContains(t, err, "timeout")

	stored, err := svc.Get(context.Background(), pc.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPending())
}

func TestService_ResolveWithLocal_ModelGone(t *testing.T) {
	f := newResolverFixture(t)
	reg, _, _ := testutil.NewRegistry(f.models)
	p := syncedPost(time.Now().Add(-time.Hour), time.Now())
	pc := manualConflict(t, f, p)

	pub := new(MockPublisher)
	svc := NewService(f.repo, reg, f.models, pub, slog.Default())

	closed, err := svc.ResolveWithLocal(context.Background(), pc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, closed.Status)
	pub.AssertNotCalled(t, "Resync", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ResolveWithRemote(t *testing.T) {
	f := newResolverFixture(t)
	reg, _, _ := testutil.NewRegistry(f.models)
	p := syncedPost(time.Now().Add(-time.Hour), time.Now())
	f.models.Put(p)
	pc := manualConflict(t, f, p)

	svc := NewService(f.repo, reg, f.models, nil, slog.Default())
	closed, err := svc.ResolveWithRemote(context.Background(), pc.ID)
	require.NoError(t, err)

	assert.Equal(t, SideRemote, closed.Resolution)
	assert.Equal(t, "remote text", p.Text)
	assert.Equal(t, "bafy2", p.State.Version)
}

func TestService_DismissAndList(t *testing.T) {
	f := newResolverFixture(t)
	reg, _, _ := testutil.NewRegistry(f.models)
	p := syncedPost(time.Now().Add(-time.Hour), time.Now())
	pc := manualConflict(t, f, p)

	svc := NewService(f.repo, reg, f.models, nil, slog.Default())

	pendingList, err := svc.List(context.Background(), StatusPending)
	require.NoError(t, err)
	assert.Len(t, pendingList, 1)

	closed, err := svc.Dismiss(context.Background(), pc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDismissed, closed.Status)
	assert.Empty(t, closed.Resolution)

	pendingList, err = svc.List(context.Background(), StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pendingList)

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.Dismiss(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConflictNotFound)
}
