package testutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reposync/internal/domain/mapper"
	"reposync/internal/domain/remote"
)

const (
	PostCollection = "app.bsky.feed.post"
	LinkCollection = "app.example.feed.link"
	LinkMapperID   = "post-link"
)

var ErrBrokenRecord = errors.New("broken record")

// PostMapper маппер Post ↔ app.bsky.feed.post.
// Записи без text пропускаются, записи с "broken": true не разбираются.
type PostMapper struct {
	Models *Models
}

func (m *PostMapper) Collection() string { return PostCollection }
func (m *PostMapper) ModelType() string  { return PostType }

func (m *PostMapper) ToPayload(model mapper.Model) (remote.Record, error) {
	p, ok := model.(*Post)
	if !ok {
		return nil, fmt.Errorf("unexpected model %T", model)
	}
	rec := remote.Record{"$type": PostCollection, "text": p.Text}
	if !p.CreatedAt.IsZero() {
		rec["createdAt"] = p.CreatedAt.Format(time.RFC3339Nano)
	}
	return rec, nil
}

func (m *PostMapper) Project(record remote.Record, meta remote.Meta) (mapper.Model, error) {
	if broken, _ := record["broken"].(bool); broken {
		return nil, ErrBrokenRecord
	}
	text, _ := record["text"].(string)
	if text == "" {
		return nil, nil
	}

	uri, err := remote.ParseURI(meta.URI)
	if err != nil {
		return nil, err
	}
	p := &Post{ID: uri.RecordKey, Owner: uri.Owner, Text: text}
	if at, ok := record.CreatedAt(); ok {
		p.CreatedAt = at
	}
	return p, nil
}

func (m *PostMapper) Upsert(ctx context.Context, record remote.Record, meta remote.Meta) (mapper.Model, error) {
	projected, err := m.Project(record, meta)
	if err != nil || projected == nil {
		return nil, err
	}
	fresh := projected.(*Post)

	var p *Post
	existing, err := m.Models.FindByURI(ctx, PostType, meta.URI)
	switch {
	case err == nil:
		p = existing.(*Post)
		p.Text = fresh.Text
		p.CreatedAt = fresh.CreatedAt
	case errors.Is(err, mapper.ErrModelNotFound):
		p = fresh
	default:
		return nil, err
	}

	now := time.Now().UTC()
	p.State = mapper.SyncState{URI: meta.URI, Version: meta.Version, SyncedAt: now, UpdatedAt: now}
	if err := m.Models.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// LinkMapper запись-ссылка на пост
type LinkMapper struct {
	Main *PostMapper
	// Fail заставляет ReferencePayload возвращать ошибку
	Fail bool
}

func (l *LinkMapper) ID() string                      { return LinkMapperID }
func (l *LinkMapper) Collection() string              { return LinkCollection }
func (l *LinkMapper) MainMapper() mapper.RecordMapper { return l.Main }

func (l *LinkMapper) ReferencePayload(_ mapper.Model, main remote.StrongRef) (remote.Record, error) {
	if l.Fail {
		return nil, errors.New("link payload unavailable")
	}
	return remote.Record{"$type": LinkCollection, "subject": main.Value()}, nil
}

func (l *LinkMapper) ReferenceState(m mapper.Model) mapper.SyncState {
	return m.(*Post).LinkState
}

func (l *LinkMapper) SetReferenceState(m mapper.Model, s mapper.SyncState) {
	m.(*Post).LinkState = s
}

// NewRegistry реестр с PostMapper и LinkMapper
func NewRegistry(models *Models) (*mapper.Registry, *PostMapper, *LinkMapper) {
	reg := mapper.NewRegistry()
	pm := &PostMapper{Models: models}
	lm := &LinkMapper{Main: pm}
	_ = reg.Register(pm)
	_ = reg.RegisterReference(lm)
	return reg, pm, lm
}
