package publish

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/event"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/remote"
)

// ReferenceEngine записывает пару: основную запись и запись-ссылку на нее
type ReferenceEngine struct {
	engine *Engine
	events event.Dispatcher
	log    *slog.Logger
}

func NewReferenceEngine(engine *Engine, events event.Dispatcher, log *slog.Logger) *ReferenceEngine {
	if events == nil {
		events = event.Nop{}
	}
	return &ReferenceEngine{
		engine: engine,
		events: events,
		log:    log.With("component", "reference_sync_engine"),
	}
}

// SyncWithReference записывает основную запись, затем ссылку на нее.
// Если ссылку записать не удалось и rollbackOnFailure, только что созданная основная запись удаляется.
// Без отката возвращается частичный результат с адресом основной записи.
func (r *ReferenceEngine) SyncWithReference(
	ctx context.Context,
	owner string,
	m mapper.Model,
	ref mapper.ReferenceMapper,
	rollbackOnFailure bool,
) ReferenceResult {
	mainT := mainTarget(m, ref.MainMapper())
	created := mainT.state().URI == ""

	main := r.engine.syncAs(ctx, owner, mainT)
	if !main.Success {
		return ReferenceResult{
			Error: fmt.Sprintf("main record: %s", main.Error),
			Err:   main.Err,
		}
	}

	refT := referenceTarget(m, ref, remote.StrongRef{URI: main.URI, CID: main.Version})
	refRes := r.engine.syncAs(ctx, owner, refT)
	if !refRes.Success {
		return r.referenceFailed(ctx, mainT, main, refRes, rollbackOnFailure && created)
	}

	return r.done(ctx, m, main, refRes)
}

// ResyncWithReference обновляет основную запись и ссылку на ее новую версию.
// Ссылка, которой еще нет, создается от имени владельца основной записи.
func (r *ReferenceEngine) ResyncWithReference(ctx context.Context, m mapper.Model, ref mapper.ReferenceMapper) ReferenceResult {
	mainT := mainTarget(m, ref.MainMapper())

	main := r.engine.resync(ctx, mainT)
	if !main.Success {
		return ReferenceResult{
			Error: fmt.Sprintf("main record: %s", main.Error),
			Err:   main.Err,
		}
	}

	uri, err := remote.ParseURI(main.URI)
	if err != nil {
		return ReferenceResult{
			MainURI:     main.URI,
			MainVersion: main.Version,
			Error:       fmt.Sprintf("main record: %v", err),
			Err:         err,
		}
	}

	refT := referenceTarget(m, ref, remote.StrongRef{URI: main.URI, CID: main.Version})
	refRes := r.engine.syncAs(ctx, uri.Owner, refT)
	if !refRes.Success {
		return r.referenceFailed(ctx, mainT, main, refRes, false)
	}

	return r.done(ctx, m, main, refRes)
}

// UnsyncWithReference удаляет сначала ссылку, затем основную запись,
// чтобы ссылка не указывала на удаленную запись даже временно.
func (r *ReferenceEngine) UnsyncWithReference(ctx context.Context, m mapper.Model, ref mapper.ReferenceMapper) bool {
	return r.TryUnsyncWithReference(ctx, m, ref) == nil
}

// TryUnsyncWithReference как UnsyncWithReference, но возвращает причину неудачи
func (r *ReferenceEngine) TryUnsyncWithReference(ctx context.Context, m mapper.Model, ref mapper.ReferenceMapper) error {
	if ref.ReferenceState(m).URI != "" {
		refT := referenceTarget(m, ref, remote.StrongRef{})
		if err := r.engine.unsync(ctx, refT); err != nil {
			return fmt.Errorf("reference record: %w", err)
		}
	}

	if err := r.engine.unsync(ctx, mainTarget(m, ref.MainMapper())); err != nil {
		return fmt.Errorf("main record: %w", err)
	}
	return nil
}

func (r *ReferenceEngine) referenceFailed(
	ctx context.Context,
	mainT target,
	main, refRes Result,
	rollback bool,
) ReferenceResult {
	if !rollback {
		r.log.Warn("reference record failed, main record kept",
			"main_uri", main.URI, "error", refRes.Error)
		return ReferenceResult{
			MainURI:     main.URI,
			MainVersion: main.Version,
			Error:       fmt.Sprintf("reference record: %s", refRes.Error),
			Err:         refRes.Err,
		}
	}

	if err := r.engine.unsync(ctx, mainT); err != nil {
		r.log.Error("failed to roll back main record", "main_uri", main.URI, "error", err)
		return ReferenceResult{
			MainURI:     main.URI,
			MainVersion: main.Version,
			Error:       fmt.Sprintf("reference record: %s; rollback of %s failed: %v", refRes.Error, main.URI, err),
			Err:         refRes.Err,
		}
	}

	r.log.Info("main record rolled back", "main_uri", main.URI, "error", refRes.Error)
	return ReferenceResult{
		RolledBack: true,
		Error:      fmt.Sprintf("reference record: %s; main record %s rolled back", refRes.Error, main.URI),
		Err:        refRes.Err,
	}
}

func (r *ReferenceEngine) done(ctx context.Context, m mapper.Model, main, refRes Result) ReferenceResult {
	r.events.Dispatch(ctx, event.ReferenceSynced{
		ModelType:    m.ModelType(),
		ModelID:      m.ModelID(),
		MainURI:      main.URI,
		ReferenceURI: refRes.URI,
	})

	return ReferenceResult{
		Success:          true,
		MainURI:          main.URI,
		MainVersion:      main.Version,
		ReferenceURI:     refRes.URI,
		ReferenceVersion: refRes.Version,
	}
}
