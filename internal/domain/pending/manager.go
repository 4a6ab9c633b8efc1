package pending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/event"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/publish"
	"reposync/internal/domain/remote"
)

const DefaultMaxAttempts = 5

// SyncEngine операции записи одной модели
type SyncEngine interface {
	SyncAs(ctx context.Context, owner string, m mapper.Model, rm mapper.RecordMapper) publish.Result
	Resync(ctx context.Context, m mapper.Model, rm mapper.RecordMapper) publish.Result
	TryUnsync(ctx context.Context, m mapper.Model, rm mapper.RecordMapper) error
	UnsyncURI(ctx context.Context, uri string) error
}

// ReferenceEngine операции записи пары основная запись + ссылка
type ReferenceEngine interface {
	SyncWithReference(ctx context.Context, owner string, m mapper.Model, ref mapper.ReferenceMapper, rollbackOnFailure bool) publish.ReferenceResult
	ResyncWithReference(ctx context.Context, m mapper.Model, ref mapper.ReferenceMapper) publish.ReferenceResult
	TryUnsyncWithReference(ctx context.Context, m mapper.Model, ref mapper.ReferenceMapper) error
}

// Manager очередь неудавшихся удаленных записей с повтором по владельцу
type Manager struct {
	store      Store
	engine     SyncEngine
	references ReferenceEngine
	registry   *mapper.Registry
	models     mapper.ModelStore
	events     event.Dispatcher
	log        *slog.Logger
	config     *Config
	now        func() time.Time
	newID      func() string
}

func NewManager(
	store Store,
	engine SyncEngine,
	references ReferenceEngine,
	registry *mapper.Registry,
	models mapper.ModelStore,
	events event.Dispatcher,
	log *slog.Logger,
	config *Config,
) *Manager {
	if config == nil {
		config = &Config{MaxAttempts: DefaultMaxAttempts, TTL: 7 * 24 * time.Hour}
	}
	if events == nil {
		events = event.Nop{}
	}

	return &Manager{
		store:      store,
		engine:     engine,
		references: references,
		registry:   registry,
		models:     models,
		events:     events,
		log:        log.With("component", "pending_sync"),
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// Capture ставит операцию над моделью в очередь, вытесняя прежнюю запись этой модели
func (m *Manager) Capture(ctx context.Context, owner string, model mapper.Model, op Operation, referenceMapper string) (*Entry, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}
	if op.WithReference() && referenceMapper == "" {
		return nil, fmt.Errorf("%w: %s", ErrReferenceRequired, op)
	}

	if _, err := m.store.RemoveForModel(ctx, model.ModelType(), model.ModelID()); err != nil {
		return nil, fmt.Errorf("remove previous entry: %w", err)
	}

	entry := &Entry{
		ID:              m.newID(),
		Owner:           owner,
		ModelType:       model.ModelType(),
		ModelID:         model.ModelID(),
		Operation:       op,
		ReferenceMapper: referenceMapper,
		URI:             model.SyncState().URI,
		CreatedAt:       m.now(),
	}
	if err := m.store.Store(ctx, entry); err != nil {
		return nil, fmt.Errorf("store entry: %w", err)
	}

	m.events.Dispatch(ctx, event.PendingCaptured{
		EntryID:   entry.ID,
		Owner:     owner,
		ModelType: entry.ModelType,
		ModelID:   entry.ModelID,
		Operation: string(op),
	})
	m.log.Info("pending sync captured",
		"entry_id", entry.ID,
		"owner", owner,
		"model_type", entry.ModelType,
		"model_id", entry.ModelID,
		"operation", op,
	)

	return entry, nil
}

// RetryForOwner последовательно повторяет операции владельца.
// Ошибка аутентификации прерывает обход и возвращается вызывающему коду;
// остальные ошибки учитываются как неудачи, запись остается в очереди.
func (m *Manager) RetryForOwner(ctx context.Context, owner string) (RetryResult, error) {
	var result RetryResult

	entries, err := m.store.ForOwner(ctx, owner)
	if err != nil {
		return result, fmt.Errorf("list pending entries: %w", err)
	}
	result.Total = len(entries)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if e.Expired(m.now(), m.config.TTL) || m.exhausted(e) {
			if err := m.store.Remove(ctx, e.ID); err != nil {
				return result, fmt.Errorf("remove abandoned entry: %w", err)
			}
			result.Skipped++
			m.log.Info("pending sync abandoned", "entry_id", e.ID, "attempts", e.Attempts)
			continue
		}

		// попытка учитывается до выполнения: падение посреди повтора ее не теряет
		e.Attempts++
		if err := m.store.Update(ctx, e); err != nil {
			return result, fmt.Errorf("update attempts: %w", err)
		}

		ok, msg, err := m.dispatch(ctx, e)
		if err != nil {
			if remote.IsAuth(err) {
				m.log.Warn("pending retry stopped by authentication failure", "owner", owner, "entry_id", e.ID)
				return result, fmt.Errorf("retry %s: %w", e.ID, err)
			}

			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", e.ID, err))
			m.events.Dispatch(ctx, event.PendingRetryFailed{
				EntryID:  e.ID,
				Owner:    owner,
				Attempts: e.Attempts,
				Error:    err.Error(),
				At:       m.now(),
			})
			m.log.Error("pending retry failed", "entry_id", e.ID, "error", err)
			continue
		}

		if !ok {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", e.ID, msg))
			m.events.Dispatch(ctx, event.PendingRetried{
				EntryID:  e.ID,
				Owner:    owner,
				Attempts: e.Attempts,
				Error:    msg,
			})
			continue
		}

		if err := m.store.Remove(ctx, e.ID); err != nil {
			return result, fmt.Errorf("remove retried entry: %w", err)
		}
		result.Succeeded++
		m.events.Dispatch(ctx, event.PendingRetried{
			EntryID:  e.ID,
			Owner:    owner,
			Attempts: e.Attempts,
			Success:  true,
		})
	}

	m.log.Info("pending retry finished",
		"owner", owner,
		"total", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

// PruneExpired удаляет истекшие записи всех владельцев
func (m *Manager) PruneExpired(ctx context.Context) (int, error) {
	if m.config.TTL <= 0 {
		return 0, nil
	}
	n, err := m.store.RemoveExpired(ctx, m.now().Add(-m.config.TTL))
	if err != nil {
		return 0, fmt.Errorf("remove expired entries: %w", err)
	}
	return n, nil
}

func (m *Manager) Entries(ctx context.Context, owner string) ([]*Entry, error) {
	return m.store.ForOwner(ctx, owner)
}

func (m *Manager) Count(ctx context.Context, owner string) (int, error) {
	return m.store.CountForOwner(ctx, owner)
}

func (m *Manager) Has(ctx context.Context, owner string) (bool, error) {
	return m.store.HasForOwner(ctx, owner)
}

// Clear удаляет все записи владельца
func (m *Manager) Clear(ctx context.Context, owner string) (int, error) {
	return m.store.RemoveForOwner(ctx, owner)
}

func (m *Manager) exhausted(e *Entry) bool {
	return m.config.MaxAttempts > 0 && e.Attempts >= m.config.MaxAttempts
}

// dispatch выполняет операцию записи.
// Неуспешный результат возвращается как (false, причина, nil), исключительная ситуация как error.
func (m *Manager) dispatch(ctx context.Context, e *Entry) (bool, string, error) {
	model, err := m.models.Find(ctx, e.ModelType, e.ModelID)
	if errors.Is(err, mapper.ErrModelNotFound) {
		if e.Operation == OpUnsync && e.URI != "" {
			return outcome(m.engine.UnsyncURI(ctx, e.URI))
		}
		m.log.Debug("pending model is gone, nothing to do", "entry_id", e.ID)
		return true, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("find model: %w", err)
	}

	rm, ok := m.registry.ForModelType(e.ModelType)
	if !ok {
		return false, fmt.Sprintf("%v: model type %s", mapper.ErrNoMapper, e.ModelType), nil
	}

	var ref mapper.ReferenceMapper
	if e.Operation.WithReference() {
		if ref, ok = m.registry.Reference(e.ReferenceMapper); !ok {
			return false, fmt.Sprintf("%v: reference %s", mapper.ErrNoMapper, e.ReferenceMapper), nil
		}
	}

	switch e.Operation {
	case OpSync:
		return fromResult(m.engine.SyncAs(ctx, e.Owner, model, rm))
	case OpResync:
		return fromResult(m.engine.Resync(ctx, model, rm))
	case OpUnsync:
		return outcome(m.engine.TryUnsync(ctx, model, rm))
	case OpSyncWithReference:
		return fromReference(m.references.SyncWithReference(ctx, e.Owner, model, ref, true))
	case OpResyncWithReference:
		return fromReference(m.references.ResyncWithReference(ctx, model, ref))
	case OpUnsyncWithReference:
		return outcome(m.references.TryUnsyncWithReference(ctx, model, ref))
	default:
		return false, "", fmt.Errorf("%w: %q", ErrInvalidOperation, e.Operation)
	}
}

func fromResult(r publish.Result) (bool, string, error) {
	if r.Success {
		return true, "", nil
	}
	if remote.IsAuth(r.Err) {
		return false, r.Error, r.Err
	}
	return false, r.Error, nil
}

func fromReference(r publish.ReferenceResult) (bool, string, error) {
	if r.Success {
		return true, "", nil
	}
	if remote.IsAuth(r.Err) {
		return false, r.Error, r.Err
	}
	return false, r.Error, nil
}

// outcome для удаления: отсутствие записи на любой стороне означает, что делать нечего
func outcome(err error) (bool, string, error) {
	switch {
	case err == nil,
		errors.Is(err, publish.ErrNotSynced),
		errors.Is(err, remote.ErrRecordNotFound):
		return true, "", nil
	case remote.IsAuth(err):
		return false, err.Error(), err
	default:
		return false, err.Error(), nil
	}
}
