package publish

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/event"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/remote"
)

// Engine записывает локальные модели в удаленный репозиторий.
// Ошибки транспорта и API превращаются в неуспешный Result, исходная ошибка остается в Result.Err.
type Engine struct {
	remote remote.Repository
	models mapper.ModelStore
	events event.Dispatcher
	log    *slog.Logger
	now    func() time.Time
}

func NewEngine(rem remote.Repository, models mapper.ModelStore, events event.Dispatcher, log *slog.Logger) *Engine {
	if events == nil {
		events = event.Nop{}
	}
	return &Engine{
		remote: rem,
		models: models,
		events: events,
		log:    log.With("component", "sync_engine"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// target место хранения одной удаленной записи модели
type target struct {
	model      mapper.Model
	collection string
	payload    func() (remote.Record, error)
	state      func() mapper.SyncState
	setState   func(mapper.SyncState)
}

func mainTarget(m mapper.Model, rm mapper.RecordMapper) target {
	return target{
		model:      m,
		collection: rm.Collection(),
		payload:    func() (remote.Record, error) { return rm.ToPayload(m) },
		state:      m.SyncState,
		setState:   m.SetSyncState,
	}
}

func referenceTarget(m mapper.Model, ref mapper.ReferenceMapper, main remote.StrongRef) target {
	return target{
		model:      m,
		collection: ref.Collection(),
		payload:    func() (remote.Record, error) { return ref.ReferencePayload(m, main) },
		state:      func() mapper.SyncState { return ref.ReferenceState(m) },
		setState:   func(s mapper.SyncState) { ref.SetReferenceState(m, s) },
	}
}

// SyncAs создает удаленную запись модели от имени владельца.
// Если у модели уже есть адрес, выполняется Resync: повторный вызов не создает дубликат.
func (e *Engine) SyncAs(ctx context.Context, owner string, m mapper.Model, rm mapper.RecordMapper) Result {
	return e.syncAs(ctx, owner, mainTarget(m, rm))
}

// Resync полностью заменяет удаленную запись текущим состоянием модели
func (e *Engine) Resync(ctx context.Context, m mapper.Model, rm mapper.RecordMapper) Result {
	return e.resync(ctx, mainTarget(m, rm))
}

// Unsync удаляет удаленную запись модели и очищает адрес и версию
func (e *Engine) Unsync(ctx context.Context, m mapper.Model, rm mapper.RecordMapper) bool {
	return e.TryUnsync(ctx, m, rm) == nil
}

// TryUnsync как Unsync, но возвращает причину неудачи
func (e *Engine) TryUnsync(ctx context.Context, m mapper.Model, rm mapper.RecordMapper) error {
	return e.unsync(ctx, mainTarget(m, rm))
}

// UnsyncURI удаляет удаленную запись по адресу, когда локальной модели уже нет
func (e *Engine) UnsyncURI(ctx context.Context, rawURI string) error {
	uri, err := remote.ParseURI(rawURI)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStoredURI, err)
	}
	if err := e.remote.DeleteRecord(ctx, uri.Owner, uri.Collection, uri.RecordKey); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	e.events.Dispatch(ctx, event.Unsynced{URI: rawURI})
	return nil
}

func (e *Engine) syncAs(ctx context.Context, owner string, t target) Result {
	if t.state().URI != "" {
		return e.resync(ctx, t)
	}

	payload, err := t.payload()
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrBuildPayload, err))
	}

	res, err := e.remote.CreateRecord(ctx, owner, t.collection, payload)
	if err != nil {
		e.log.Warn("failed to create record",
			"model_type", t.model.ModelType(), "model_id", t.model.ModelID(), "error", err)
		return failed(fmt.Errorf("create record: %w", err))
	}

	return e.writeBack(ctx, t, res)
}

func (e *Engine) resync(ctx context.Context, t target) Result {
	stored := t.state().URI
	if stored == "" {
		return failed(ErrNotSynced)
	}

	uri, err := remote.ParseURI(stored)
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrInvalidStoredURI, err))
	}

	payload, err := t.payload()
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrBuildPayload, err))
	}

	res, err := e.remote.PutRecord(ctx, uri.Owner, uri.Collection, uri.RecordKey, payload)
	if err != nil {
		e.log.Warn("failed to put record", "uri", stored, "error", err)
		return failed(fmt.Errorf("put record: %w", err))
	}

	return e.writeBack(ctx, t, res)
}

func (e *Engine) unsync(ctx context.Context, t target) error {
	stored := t.state().URI
	if stored == "" {
		return ErrNotSynced
	}

	uri, err := remote.ParseURI(stored)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStoredURI, err)
	}

	if err := e.remote.DeleteRecord(ctx, uri.Owner, uri.Collection, uri.RecordKey); err != nil {
		e.log.Warn("failed to delete record", "uri", stored, "error", err)
		return fmt.Errorf("delete record: %w", err)
	}

	st := t.state()
	t.setState(mapper.SyncState{UpdatedAt: st.UpdatedAt})
	if err := e.models.Save(ctx, t.model); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	e.events.Dispatch(ctx, event.Unsynced{
		ModelType: t.model.ModelType(),
		ModelID:   t.model.ModelID(),
		URI:       stored,
	})
	return nil
}

// writeBack сохраняет в модели адрес и версию записи
func (e *Engine) writeBack(ctx context.Context, t target, res *remote.WriteResult) Result {
	st := t.state()
	st.URI = res.URI
	st.Version = res.CID
	st.SyncedAt = e.now()
	t.setState(st)

	if err := e.models.Save(ctx, t.model); err != nil {
		e.log.Error("failed to save synced model",
			"model_type", t.model.ModelType(), "model_id", t.model.ModelID(), "uri", res.URI, "error", err)
		r := failed(fmt.Errorf("save model: %w", err))
		r.URI, r.Version = res.URI, res.CID
		return r
	}

	e.events.Dispatch(ctx, event.Synced{
		ModelType: t.model.ModelType(),
		ModelID:   t.model.ModelID(),
		URI:       res.URI,
		Version:   res.CID,
	})
	e.log.Debug("model synced", "model_type", t.model.ModelType(), "model_id", t.model.ModelID(), "uri", res.URI)

	return succeeded(res.URI, res.CID)
}
