package signal

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/conflict"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/remote"
)

// Handler применяет уведомления о коммитах к локальным моделям.
// Перед обновлением модели проверяется конфликт с локальными изменениями.
type Handler struct {
	registry *mapper.Registry
	models   mapper.ModelStore
	resolver *conflict.Resolver
	strategy conflict.Strategy
	log      *slog.Logger
}

func NewHandler(
	registry *mapper.Registry,
	models mapper.ModelStore,
	resolver *conflict.Resolver,
	strategy conflict.Strategy,
	log *slog.Logger,
) *Handler {
	if strategy == "" {
		strategy = conflict.StrategyRemoteWins
	}
	return &Handler{
		registry: registry,
		models:   models,
		resolver: resolver,
		strategy: strategy,
		log:      log.With("component", "signal_handler"),
	}
}

// Handle обрабатывает событие; коллекции без маппера игнорируются
func (h *Handler) Handle(ctx context.Context, ev Event) (Outcome, error) {
	rm, ok := h.registry.ForCollection(ev.Collection)
	if !ok {
		return Outcome{Action: ActionIgnored}, nil
	}

	switch ev.Operation {
	case OpCreate, OpUpdate:
		return h.upsert(ctx, ev, rm)
	case OpDelete:
		return h.delete(ctx, ev, rm)
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownOperation, ev.Operation)
	}
}

func (h *Handler) upsert(ctx context.Context, ev Event, rm mapper.RecordMapper) (Outcome, error) {
	if ev.Record == nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrMissingRecord, ev.URI())
	}
	meta := remote.Meta{URI: ev.URI(), Version: ev.CID}

	existing, err := h.models.FindByURI(ctx, rm.ModelType(), meta.URI)
	switch {
	case errors.Is(err, mapper.ErrModelNotFound):
		existing = nil
	case err != nil:
		return Outcome{}, fmt.Errorf("find model: %w", err)
	}

	if existing != nil && conflict.HasConflict(existing, ev.Record, ev.CID) {
		h.log.Info("conflicting remote commit", "uri", meta.URI, "strategy", h.strategy)

		res, err := h.resolver.Resolve(ctx, existing, ev.Record, meta, rm, h.strategy)
		if err != nil {
			return Outcome{}, fmt.Errorf("resolve conflict: %w", err)
		}
		action := ActionResolved
		if !res.Resolved {
			action = ActionDeferred
		}
		return Outcome{Action: action, Model: res.Model, Resolution: &res}, nil
	}

	m, err := rm.Upsert(ctx, ev.Record, meta)
	if err != nil {
		return Outcome{}, fmt.Errorf("apply record: %w", err)
	}
	if m == nil {
		return Outcome{Action: ActionSkipped}, nil
	}

	h.log.Debug("remote commit applied", "uri", meta.URI, "cid", ev.CID)
	return Outcome{Action: ActionApplied, Model: m}, nil
}

func (h *Handler) delete(ctx context.Context, ev Event, rm mapper.RecordMapper) (Outcome, error) {
	m, err := h.models.FindByURI(ctx, rm.ModelType(), ev.URI())
	if errors.Is(err, mapper.ErrModelNotFound) {
		return Outcome{Action: ActionIgnored}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("find model: %w", err)
	}

	if err := h.models.Delete(ctx, m); err != nil {
		return Outcome{}, fmt.Errorf("delete model: %w", err)
	}

	h.log.Debug("remote delete applied", "uri", ev.URI())
	return Outcome{Action: ActionDeleted, Model: m}, nil
}
