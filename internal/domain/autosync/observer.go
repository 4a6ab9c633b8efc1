// Package autosync публикует изменения локальных моделей сразу после их сохранения.
// Адаптер ORM вызывает OnCreated, OnUpdated и OnDeleted из своих хуков жизненного цикла.
package autosync

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/mapper"
	"reposync/internal/domain/pending"
	"reposync/internal/domain/publish"
	"reposync/internal/domain/remote"
)

var ErrNoOwner = errors.New("model has no owner")

// Capturer очередь отложенных операций
type Capturer interface {
	Capture(ctx context.Context, owner string, m mapper.Model, op pending.Operation, referenceMapper string) (*pending.Entry, error)
}

// Config параметры наблюдателя
type Config struct {
	// Durable ставит неудачные записи в очередь повторов
	Durable bool
	// References тип модели -> ID маппера записи-ссылки
	References map[string]string
	// Rollback откатывает основную запись, если ссылку создать не удалось
	Rollback bool
}

type Observer struct {
	engine     pending.SyncEngine
	references pending.ReferenceEngine
	queue      Capturer
	registry   *mapper.Registry
	log        *slog.Logger
	config     *Config
}

// NewObserver создает наблюдателя. queue может быть nil, если Durable выключен.
func NewObserver(
	engine pending.SyncEngine,
	references pending.ReferenceEngine,
	queue Capturer,
	registry *mapper.Registry,
	log *slog.Logger,
	config *Config,
) *Observer {
	if config == nil {
		config = &Config{}
	}
	return &Observer{
		engine:     engine,
		references: references,
		queue:      queue,
		registry:   registry,
		log:        log.With("component", "autosync"),
		config:     config,
	}
}

// OnCreated публикует новую модель от имени ее владельца
func (o *Observer) OnCreated(ctx context.Context, m mapper.Model) publish.Result {
	owner, rm, ref, err := o.resolve(m)
	if err != nil {
		return publish.Result{Error: err.Error(), Err: err}
	}

	if ref != nil {
		r := o.references.SyncWithReference(ctx, owner, m, ref, o.config.Rollback)
		res := fromReference(r)
		if !res.Success {
			res.Queued = o.capture(ctx, owner, m, pending.OpSyncWithReference, ref.ID(), res.Err)
		}
		return res
	}

	res := o.engine.SyncAs(ctx, owner, m, rm)
	if !res.Success {
		res.Queued = o.capture(ctx, owner, m, pending.OpSync, "", res.Err)
	}
	return res
}

// OnUpdated перезаписывает удаленную запись; несинхронизированная модель публикуется впервые
func (o *Observer) OnUpdated(ctx context.Context, m mapper.Model) publish.Result {
	if !m.SyncState().IsSynced() {
		return o.OnCreated(ctx, m)
	}

	owner, rm, ref, err := o.resolve(m)
	if err != nil {
		return publish.Result{Error: err.Error(), Err: err}
	}

	if ref != nil {
		res := fromReference(o.references.ResyncWithReference(ctx, m, ref))
		if !res.Success {
			res.Queued = o.capture(ctx, owner, m, pending.OpResyncWithReference, ref.ID(), res.Err)
		}
		return res
	}

	res := o.engine.Resync(ctx, m, rm)
	if !res.Success {
		res.Queued = o.capture(ctx, owner, m, pending.OpResync, "", res.Err)
	}
	return res
}

// OnDeleted удаляет удаленную запись модели; несинхронизированная модель пропускается
func (o *Observer) OnDeleted(ctx context.Context, m mapper.Model) error {
	if !m.SyncState().IsSynced() {
		return nil
	}

	owner, rm, ref, err := o.resolve(m)
	if err != nil {
		return err
	}

	if ref != nil {
		err = o.references.TryUnsyncWithReference(ctx, m, ref)
		if err != nil {
			o.capture(ctx, owner, m, pending.OpUnsyncWithReference, ref.ID(), err)
		}
		return err
	}

	if err = o.engine.TryUnsync(ctx, m, rm); err != nil {
		o.capture(ctx, owner, m, pending.OpUnsync, "", err)
	}
	return err
}

func (o *Observer) resolve(m mapper.Model) (string, mapper.RecordMapper, mapper.ReferenceMapper, error) {
	or, ok := m.(mapper.OwnerResolvable)
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: %s %s", ErrNoOwner, m.ModelType(), m.ModelID())
	}
	owner, ok := or.OwnerID()
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: %s %s", ErrNoOwner, m.ModelType(), m.ModelID())
	}

	rm, ok := o.registry.ForModelType(m.ModelType())
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: model type %s", mapper.ErrNoMapper, m.ModelType())
	}

	refID, ok := o.config.References[m.ModelType()]
	if !ok || o.references == nil {
		return owner, rm, nil, nil
	}
	ref, ok := o.registry.Reference(refID)
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: reference %s", mapper.ErrNoMapper, refID)
	}
	return owner, rm, ref, nil
}

// capture ставит неудачную запись в очередь и сообщает, встала ли она туда.
// Ошибки аутентификации остаются вызывающему коду.
func (o *Observer) capture(ctx context.Context, owner string, m mapper.Model, op pending.Operation, ref string, cause error) bool {
	if !o.config.Durable || o.queue == nil || remote.IsAuth(cause) {
		return false
	}
	if _, err := o.queue.Capture(ctx, owner, m, op, ref); err != nil {
		o.log.Error("failed to capture pending sync",
			"model_type", m.ModelType(), "model_id", m.ModelID(), "operation", op, "error", err)
		return false
	}
	return true
}

func fromReference(r publish.ReferenceResult) publish.Result {
	return publish.Result{
		Success: r.Success,
		URI:     r.MainURI,
		Version: r.MainVersion,
		Error:   r.Error,
		Err:     r.Err,
	}
}
