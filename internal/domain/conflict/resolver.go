package conflict

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/event"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/remote"
)

// Resolver применяет стратегию к обнаруженному конфликту
type Resolver struct {
	repo   Repository
	events event.Dispatcher
	log    *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewResolver(repo Repository, events event.Dispatcher, log *slog.Logger) *Resolver {
	if events == nil {
		events = event.Nop{}
	}
	return &Resolver{
		repo:   repo,
		events: events,
		log:    log.With("component", "conflict_resolver"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// Resolve разрешает конфликт модели с входящей записью.
// При StrategyManual модель не меняется: конфликт сохраняется и ждет решения оператора.
func (r *Resolver) Resolve(
	ctx context.Context,
	m mapper.Model,
	record remote.Record,
	meta remote.Meta,
	rm mapper.RecordMapper,
	strategy Strategy,
) (Resolution, error) {
	switch strategy {
	case StrategyRemoteWins:
		return r.remoteWins(ctx, m, record, meta, rm, strategy)
	case StrategyLocalWins:
		return localWins(m, strategy), nil
	case StrategyNewestWins:
		local := m.SyncState().UpdatedAt
		remoteAt, ok := record.CreatedAt()
		if !local.IsZero() && ok && local.After(remoteAt) {
			return localWins(m, strategy), nil
		}
		// без одной из меток побеждает удаленная сторона
		return r.remoteWins(ctx, m, record, meta, rm, strategy)
	case StrategyManual:
		return r.manual(ctx, m, record, meta, rm)
	default:
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

func localWins(m mapper.Model, strategy Strategy) Resolution {
	return Resolution{Resolved: true, Winner: SideLocal, Strategy: strategy, Model: m}
}

func (r *Resolver) remoteWins(
	ctx context.Context,
	m mapper.Model,
	record remote.Record,
	meta remote.Meta,
	rm mapper.RecordMapper,
	strategy Strategy,
) (Resolution, error) {
	updated, err := rm.Upsert(ctx, record, meta)
	if err != nil {
		return Resolution{}, fmt.Errorf("apply remote record: %w", err)
	}
	if updated == nil {
		updated = m
	}

	r.log.Debug("conflict resolved with remote", "uri", meta.URI, "strategy", strategy)
	return Resolution{Resolved: true, Winner: SideRemote, Strategy: strategy, Model: updated}, nil
}

func (r *Resolver) manual(
	ctx context.Context,
	m mapper.Model,
	record remote.Record,
	meta remote.Meta,
	rm mapper.RecordMapper,
) (Resolution, error) {
	local, err := snapshot(rm, m)
	if err != nil {
		return Resolution{}, fmt.Errorf("local snapshot: %w", err)
	}
	remoteSnap, err := remoteSnapshot(rm, record, meta)
	if err != nil {
		return Resolution{}, fmt.Errorf("remote snapshot: %w", err)
	}

	existing, err := r.repo.ListForModel(ctx, m.ModelType(), m.ModelID())
	if err != nil {
		return Resolution{}, fmt.Errorf("list model conflicts: %w", err)
	}

	var pc *PendingConflict
	for _, c := range existing {
		if c.IsPending() && c.URI == meta.URI {
			pc = c
			break
		}
	}

	if pc != nil {
		pc.RemoteVersion = meta.Version
		pc.LocalSnapshot = local
		pc.RemoteSnapshot = remoteSnap
		if err := r.repo.Update(ctx, pc); err != nil {
			return Resolution{}, fmt.Errorf("update conflict: %w", err)
		}
	} else {
		pc = &PendingConflict{
			ID:             r.newID(),
			ModelType:      m.ModelType(),
			ModelID:        m.ModelID(),
			URI:            meta.URI,
			RemoteVersion:  meta.Version,
			LocalSnapshot:  local,
			RemoteSnapshot: remoteSnap,
			Status:         StatusPending,
			CreatedAt:      r.now(),
		}
		if err := r.repo.Create(ctx, pc); err != nil {
			return Resolution{}, fmt.Errorf("save conflict: %w", err)
		}
	}

	r.events.Dispatch(ctx, event.ConflictDetected{
		ConflictID: pc.ID,
		ModelType:  pc.ModelType,
		ModelID:    pc.ModelID,
		URI:        pc.URI,
	})
	r.log.Info("conflict deferred to operator", "conflict_id", pc.ID, "uri", pc.URI)

	return Resolution{Strategy: StrategyManual, Model: m, Conflict: pc}, nil
}

func snapshot(rm mapper.RecordMapper, m mapper.Model) (json.RawMessage, error) {
	payload, err := rm.ToPayload(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

// remoteSnapshot материализует удаленную сторону через маппер, если он это умеет
func remoteSnapshot(rm mapper.RecordMapper, record remote.Record, meta remote.Meta) (json.RawMessage, error) {
	p, ok := rm.(mapper.Projector)
	if !ok {
		return json.Marshal(record)
	}
	projected, err := p.Project(record, meta)
	if err != nil {
		return nil, err
	}
	return snapshot(rm, projected)
}
