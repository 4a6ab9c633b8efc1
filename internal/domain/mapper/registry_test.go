package mapper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposync/internal/domain/remote"
)

type stubMapper struct {
	collection string
	modelType  string
	recordType string
}

func (s stubMapper) Collection() string { return s.collection }
func (s stubMapper) ModelType() string  { return s.modelType }
func (s stubMapper) RecordType() string { return s.recordType }

func (s stubMapper) ToPayload(Model) (remote.Record, error) { return remote.Record{}, nil }

func (s stubMapper) Upsert(context.Context, remote.Record, remote.Meta) (Model, error) {
	return nil, nil
}

type stubReference struct{ id string }

func (s stubReference) ID() string               { return s.id }
func (s stubReference) Collection() string       { return "app.example.ref" }
func (s stubReference) MainMapper() RecordMapper { return stubMapper{} }
func (s stubReference) ReferencePayload(Model, remote.StrongRef) (remote.Record, error) {
	return nil, nil
}
func (s stubReference) ReferenceState(Model) SyncState   { return SyncState{} }
func (s stubReference) SetReferenceState(Model, SyncState) {}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()

	post := stubMapper{collection: "app.bsky.feed.post", modelType: "post"}
	like := stubMapper{collection: "app.bsky.feed.like", modelType: "like", recordType: "app.bsky.feed.like#v2"}

	require.NoError(t, reg.Register(post))
	require.NoError(t, reg.Register(like))

	m, ok := reg.ForCollection("app.bsky.feed.post")
	assert.True(t, ok)
	assert.Equal(t, "post", m.ModelType())

	m, ok = reg.ForModelType("like")
	assert.True(t, ok)
	assert.Equal(t, "app.bsky.feed.like", m.Collection())

	_, ok = reg.ForRecordType("app.bsky.feed.like#v2")
	assert.True(t, ok)
	_, ok = reg.ForRecordType("app.bsky.feed.post")
	assert.True(t, ok)

	_, ok = reg.ForCollection("app.bsky.graph.follow")
	assert.False(t, ok)

	assert.Equal(t, []string{"app.bsky.feed.like", "app.bsky.feed.post"}, reg.Collections())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubMapper{collection: "app.bsky.feed.post", modelType: "post"}))

	err := reg.Register(stubMapper{collection: "app.bsky.feed.post", modelType: "other"})
	assert.ErrorIs(t, err, ErrDuplicateMapper)

	err = reg.Register(stubMapper{collection: "app.bsky.feed.repost", modelType: "post"})
	assert.ErrorIs(t, err, ErrDuplicateMapper)

	require.NoError(t, reg.RegisterReference(stubReference{id: "post-ref"}))
	assert.ErrorIs(t, reg.RegisterReference(stubReference{id: "post-ref"}), ErrDuplicateMapper)

	ref, ok := reg.Reference("post-ref")
	assert.True(t, ok)
	assert.Equal(t, "post-ref", ref.ID())
}
