package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/event"
	"reposync/internal/domain/remote"
	"reposync/internal/testutil"
)

const owner = "did:plc:alice"

// memRepository in-memory Repository keyed by owner/collection
type memRepository struct {
	mu     sync.Mutex
	states map[string]State
	nextID int64
	// failCompleted rejects the next save of a completed state
	failCompleted bool
}

func newMemRepository() *memRepository {
	return &memRepository{states: make(map[string]State)}
}

func (r *memRepository) FindOrCreate(_ context.Context, owner, collection string) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[owner+"/"+collection]; ok {
		return &s, nil
	}
	r.nextID++
	s := State{ID: r.nextID, Owner: owner, Collection: collection, Status: StatusPending}
	r.states[owner+"/"+collection] = s
	return &s, nil
}

func (r *memRepository) Find(_ context.Context, owner, collection string) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[owner+"/"+collection]
	if !ok {
		return nil, ErrStateNotFound
	}
	return &s, nil
}

func (r *memRepository) Save(_ context.Context, state *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCompleted && state.Status == StatusCompleted {
		r.failCompleted = false
		return errors.New("disk I/O error")
	}
	r.states[state.Owner+"/"+state.Collection] = *state
	return nil
}

func (r *memRepository) Delete(_ context.Context, owner, collection string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, owner+"/"+collection)
	return nil
}

func (r *memRepository) ListForOwner(_ context.Context, owner string) ([]*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*State
	for _, s := range r.states {
		if s.Owner == owner {
			s := s
			out = append(out, &s)
		}
	}
	return out, nil
}

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindOrCreate(ctx context.Context, owner, collection string) (*State, error) {
	args := m.Called(ctx, owner, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*State), args.Error(1)
}

func (m *MockRepository) Find(ctx context.Context, owner, collection string) (*State, error) {
	args := m.Called(ctx, owner, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*State), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, state *State) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, owner, collection string) error {
	args := m.Called(ctx, owner, collection)
	return args.Error(0)
}

func (m *MockRepository) ListForOwner(ctx context.Context, owner string) ([]*State, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*State), args.Error(1)
}

type failingResolver struct{}

func (failingResolver) ResolveEndpoint(context.Context, string) (string, error) {
	return "", remote.ErrUnresolvable
}

type fixture struct {
	repo   *memRepository
	remote *testutil.Remote
	models *testutil.Models
	events *testutil.Recorder
	svc    *Service
}

func newFixture(t *testing.T, config *Config) *fixture {
	t.Helper()

	f := &fixture{
		repo:   newMemRepository(),
		remote: testutil.NewRemote(),
		models: testutil.NewModels(),
		events: &testutil.Recorder{},
	}
	reg, _, _ := testutil.NewRegistry(f.models)
	f.svc = NewService(f.repo, f.remote, nil, reg, f.events, slog.Default(), config)
	return f
}

func TestService_ImportCollection_Pages(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.Seed(owner, testutil.PostCollection, 250)

	res := f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)

	assert.True(t, res.Success())
	assert.Equal(t, 250, res.Synced)
	assert.Zero(t, res.Skipped)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 3, f.remote.Lists)
	assert.Equal(t, 250, f.models.Len())

	state, err := f.repo.Find(context.Background(), owner, testutil.PostCollection)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Empty(t, state.Cursor)
	assert.NotNil(t, state.StartedAt)
	assert.NotNil(t, state.CompletedAt)

	assert.Equal(t, []string{
		event.NameImportStarted,
		event.NameImportProgress,
		event.NameImportProgress,
		event.NameImportProgress,
		event.NameImportCompleted,
	}, f.events.Names())
}

func TestService_ImportCollection_ClassifiesItems(t *testing.T) {
	f := newFixture(t, &Config{PageSize: 10})
	f.remote.Add(owner, testutil.PostCollection, remote.Record{"text": "hello"})
	f.remote.Add(owner, testutil.PostCollection, remote.Record{"text": ""})
	f.remote.Add(owner, testutil.PostCollection, remote.Record{"text": "x", "broken": true})

	res := f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)

	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
}

func TestService_ImportCollection_CompletedIsNotRepeated(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.Seed(owner, testutil.PostCollection, 5)

	first := f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)
	require.True(t, first.Success())
	lists := f.remote.Lists

	second := f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)
	assert.Equal(t, first, second)
	assert.Equal(t, lists, f.remote.Lists)
}

func TestService_ImportCollection_ResumesFromCursor(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.Seed(owner, testutil.PostCollection, 250)
	f.remote.ListErr = errors.New("connection reset")
	f.remote.ListErrAt = 2

	res := f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)
	assert.False(t, res.Completed)
	assert.Contains(t, res.Error, "connection reset")
	assert.Equal(t, "100", res.Cursor)
	assert.Equal(t, 100, res.Synced)

	state, err := f.repo.Find(context.Background(), owner, testutil.PostCollection)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, state.Status)
	assert.True(t, state.Resumable())
	startedAt := *state.StartedAt

	f.remote.ListErr = nil
	f.remote.Lists = 0

	res = f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)
	assert.True(t, res.Success())
	assert.Equal(t, 250, res.Synced)
	// two remaining pages only
	assert.Equal(t, 2, f.remote.Lists)

	state, err = f.repo.Find(context.Background(), owner, testutil.PostCollection)
	require.NoError(t, err)
	assert.Equal(t, startedAt, *state.StartedAt)
	assert.Len(t, f.events.Named(event.NameImportFailed), 1)
}

func TestService_ImportCollection_FinalSaveFailureKeepsLastPage(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.Seed(owner, testutil.PostCollection, 250)
	f.repo.failCompleted = true

	res := f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)
	assert.False(t, res.Completed)
	assert.Contains(t, res.Error, "disk I/O error")

	state, err := f.repo.Find(context.Background(), owner, testutil.PostCollection)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, state.Status)
	assert.Equal(t, "200", state.Cursor)
	assert.Equal(t, 200, state.Synced)
	assert.Nil(t, state.CompletedAt)

	f.remote.Lists = 0
	res = f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)
	assert.True(t, res.Success())
	assert.Equal(t, 250, res.Synced)
	assert.Equal(t, 1, f.remote.Lists)
	assert.Equal(t, 250, f.models.Len())
}

func TestService_ImportCollection_UnresolvableOwner(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.resolver = failingResolver{}

	res := f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)

	assert.False(t, res.Completed)
	assert.Contains(t, res.Error, "resolve endpoint")
	assert.Zero(t, f.remote.Lists)
	assert.Equal(t, []string{event.NameImportFailed}, f.events.Names())
}

func TestService_ImportCollection_UnknownCollection(t *testing.T) {
	f := newFixture(t, nil)

	res := f.svc.ImportCollection(context.Background(), owner, "app.bsky.graph.follow")

	assert.False(t, res.Completed)
	assert.Contains(t, res.Error, "no mapper registered")
	assert.Zero(t, f.remote.Lists)
}

func TestService_ImportCollection_Cancelled(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.Seed(owner, testutil.PostCollection, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.svc.ImportCollection(ctx, owner, testutil.PostCollection)
	assert.False(t, res.Completed)
	assert.Contains(t, res.Error, context.Canceled.Error())

	state, err := f.repo.Find(context.Background(), owner, testutil.PostCollection)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, state.Status)
}

func TestService_ImportCollection_PageDelay(t *testing.T) {
	f := newFixture(t, &Config{PageSize: 1, PageDelay: 5 * time.Millisecond})
	f.remote.Seed(owner, testutil.PostCollection, 3)

	start := time.Now()
	res := f.svc.ImportCollection(context.Background(), owner, testutil.PostCollection)

	assert.True(t, res.Success())
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestService_ImportCollection_LoadStateError(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindOrCreate", mock.Anything, owner, testutil.PostCollection).
		Return(nil, errors.New("database is locked"))

	reg, _, _ := testutil.NewRegistry(testutil.NewModels())
	rem := testutil.NewRemote()
	svc := NewService(repo, rem, nil, reg, nil, slog.Default(), nil)

	res := svc.ImportCollection(context.Background(), owner, testutil.PostCollection)

	assert.False(t, res.Completed)
	assert.Contains(t, res.Error, "database is locked")
	assert.Zero(t, rem.Lists)
	repo.AssertExpectations(t)
}

func TestService_ImportUser(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.Seed(owner, testutil.PostCollection, 7)

	res := f.svc.ImportUser(context.Background(), owner)

	assert.True(t, res.Completed)
	assert.Equal(t, 7, res.Synced)
	require.Len(t, res.Collections, 1)
	assert.Equal(t, testutil.PostCollection, res.Collections[0].Collection)

	res = f.svc.ImportUser(context.Background(), owner, testutil.PostCollection, "app.bsky.graph.follow")
	assert.False(t, res.Completed)
	assert.Len(t, res.Collections, 2)
}

func TestService_ResetAndStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.Seed(owner, testutil.PostCollection, 3)
	ctx := context.Background()

	require.True(t, f.svc.ImportCollection(ctx, owner, testutil.PostCollection).Success())

	states, err := f.svc.Status(ctx, owner)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, StatusCompleted, states[0].Status)

	require.NoError(t, f.svc.Reset(ctx, owner, testutil.PostCollection))
	f.remote.Lists = 0

	res := f.svc.ImportCollection(ctx, owner, testutil.PostCollection)
	assert.True(t, res.Success())
	assert.Equal(t, 1, f.remote.Lists)
}
