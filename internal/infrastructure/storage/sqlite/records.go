package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/mapper"
	"reposync/internal/domain/remote"
)

// Record локальная копия записи удаленного репозитория.
// Тип модели совпадает с коллекцией, поэтому одна таблица обслуживает любые коллекции.
type Record struct {
	ID         string           `json:"id"`
	Owner      string           `json:"owner"`
	Collection string           `json:"collection"`
	Value      remote.Record    `json:"value"`
	State      mapper.SyncState `json:"sync"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewRecord создает еще не опубликованную запись
func NewRecord(owner, collection string, value remote.Record) *Record {
	now := utcNow()
	return &Record{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Owner:      owner,
		Collection: collection,
		Value:      value,
		State:      mapper.SyncState{UpdatedAt: now},
		CreatedAt:  now,
	}
}

func (r *Record) ModelType() string               { return r.Collection }
func (r *Record) ModelID() string                 { return r.ID }
func (r *Record) SyncState() mapper.SyncState     { return r.State }
func (r *Record) SetSyncState(s mapper.SyncState) { r.State = s }
func (r *Record) OwnerID() (string, bool)         { return r.Owner, r.Owner != "" }

// Touch отмечает локальное изменение
func (r *Record) Touch() {
	r.State.UpdatedAt = utcNow()
}

// Records mapper.ModelStore поверх таблицы records
type Records struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

const recordColumns = `id, owner, collection, value, uri, cid, synced_at, created_at, updated_at`

func (s *Records) Find(ctx context.Context, modelType, id string) (mapper.Model, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ? AND collection = ?`, id, modelType)
	return s.one(row)
}

func (s *Records) FindByURI(ctx context.Context, modelType, uri string) (mapper.Model, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE uri = ? AND collection = ?`, uri, modelType)
	return s.one(row)
}

func (s *Records) Save(ctx context.Context, m mapper.Model) error {
	rec, ok := m.(*Record)
	if !ok {
		return fmt.Errorf("records store cannot save %T", m)
	}

	value, err := json.Marshal(rec.Value)
	if err != nil {
		return fmt.Errorf("encode record value: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.State.UpdatedAt.IsZero() {
		rec.State.UpdatedAt = rec.CreatedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			value = excluded.value,
			uri = excluded.uri,
			cid = excluded.cid,
			synced_at = excluded.synced_at,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Owner, rec.Collection, string(value),
		nullString(rec.State.URI), nullString(rec.State.Version), nullTime(&rec.State.SyncedAt),
		rec.CreatedAt.UTC(), rec.State.UpdatedAt.UTC())
	if err != nil {
		s.log.Error("failed to save record", "id", rec.ID, "collection", rec.Collection, "error", err)
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (s *Records) Delete(ctx context.Context, m mapper.Model) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE id = ? AND collection = ?`, m.ModelID(), m.ModelType()); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// List возвращает записи владельца в коллекции, новые первыми
func (s *Records) List(ctx context.Context, owner, collection string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE owner = ? AND collection = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, owner, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Records) one(row *sql.Row) (mapper.Model, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, mapper.ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec      Record
		value    string
		uri, cid sql.NullString
		syncedAt sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.Owner, &rec.Collection, &value, &uri, &cid,
		&syncedAt, &rec.CreatedAt, &rec.State.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(value), &rec.Value); err != nil {
		return nil, fmt.Errorf("decode record value: %w", err)
	}

	rec.State.URI = uri.String
	rec.State.Version = cid.String
	if syncedAt.Valid {
		rec.State.SyncedAt = syncedAt.Time.UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.State.UpdatedAt = rec.State.UpdatedAt.UTC()
	return &rec, nil
}

// Mapper зеркалирует одну коллекцию в таблицу records без преобразования значения
type Mapper struct {
	collection string
	records    *Records
}

func NewMapper(collection string, records *Records) *Mapper {
	return &Mapper{collection: collection, records: records}
}

func (m *Mapper) Collection() string { return m.collection }
func (m *Mapper) ModelType() string  { return m.collection }

func (m *Mapper) ToPayload(model mapper.Model) (remote.Record, error) {
	rec, ok := model.(*Record)
	if !ok {
		return nil, fmt.Errorf("unexpected model %T", model)
	}
	payload := maps.Clone(rec.Value)
	if payload == nil {
		payload = remote.Record{}
	}
	payload["$type"] = m.collection
	return payload, nil
}

// Project строит запись без сохранения; значения чужого $type пропускаются
func (m *Mapper) Project(value remote.Record, meta remote.Meta) (mapper.Model, error) {
	if t := value.Type(); t != "" && t != m.collection {
		return nil, nil
	}
	uri, err := remote.ParseURI(meta.URI)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		// детерминированный id: одинаковые rkey в разных коллекциях не сталкиваются
		ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(meta.URI)).String(),
		Owner:      uri.Owner,
		Collection: m.collection,
		Value:      value,
		State:      mapper.SyncState{URI: meta.URI, Version: meta.Version},
	}
	if at, ok := value.CreatedAt(); ok {
		rec.CreatedAt = at.UTC()
	}
	return rec, nil
}

func (m *Mapper) Upsert(ctx context.Context, value remote.Record, meta remote.Meta) (mapper.Model, error) {
	projected, err := m.Project(value, meta)
	if err != nil || projected == nil {
		return nil, err
	}
	rec := projected.(*Record)

	existing, err := m.records.FindByURI(ctx, m.collection, meta.URI)
	switch {
	case err == nil:
		cur := existing.(*Record)
		rec.ID = cur.ID
		rec.CreatedAt = cur.CreatedAt
	case !errors.Is(err, mapper.ErrModelNotFound):
		return nil, err
	}

	now := m.records.now()
	rec.State.SyncedAt = now
	rec.State.UpdatedAt = now
	if err := m.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
