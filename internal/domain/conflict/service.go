package conflict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/mapper"
	"reposync/internal/domain/publish"
	"reposync/internal/domain/remote"
)

// Publisher повторная запись локального состояния в удаленный репозиторий
type Publisher interface {
	Resync(ctx context.Context, m mapper.Model, rm mapper.RecordMapper) publish.Result
}

// Service решения оператора по отложенным конфликтам
type Service struct {
	repo      Repository
	registry  *mapper.Registry
	models    mapper.ModelStore
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(
	repo Repository,
	registry *mapper.Registry,
	models mapper.ModelStore,
	publisher Publisher,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		registry:  registry,
		models:    models,
		publisher: publisher,
		log:       log.With("component", "conflict_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List возвращает конфликты со статусом; пустой статус означает все
func (s *Service) List(ctx context.Context, status Status) ([]*PendingConflict, error) {
	conflicts, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	return conflicts, nil
}

func (s *Service) Get(ctx context.Context, id string) (*PendingConflict, error) {
	return s.repo.Find(ctx, id)
}

// ResolveWithLocal оставляет локальное состояние и, если модель еще существует,
// перезаписывает им удаленную запись.
func (s *Service) ResolveWithLocal(ctx context.Context, id string) (*PendingConflict, error) {
	pc, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := s.models.Find(ctx, pc.ModelType, pc.ModelID)
	switch {
	case errors.Is(err, mapper.ErrModelNotFound):
		s.log.Info("conflict model is gone, nothing to publish", "conflict_id", id)
	case err != nil:
		return nil, fmt.Errorf("find model: %w", err)
	case s.publisher != nil:
		rm, ok := s.registry.ForModelType(pc.ModelType)
		if !ok {
			return nil, fmt.Errorf("%w: model type %s", mapper.ErrNoMapper, pc.ModelType)
		}
		if res := s.publisher.Resync(ctx, m, rm); !res.Success {
			return nil, fmt.Errorf("publish local state: %w", res.Err)
		}
	}

	return s.close(ctx, pc, StatusResolved, SideLocal)
}

// ResolveWithRemote применяет сохраненный снимок удаленной записи к локальной модели
func (s *Service) ResolveWithRemote(ctx context.Context, id string) (*PendingConflict, error) {
	pc, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}

	rm, ok := s.registry.ForModelType(pc.ModelType)
	if !ok {
		return nil, fmt.Errorf("%w: model type %s", mapper.ErrNoMapper, pc.ModelType)
	}

	var record remote.Record
	if err := json.Unmarshal(pc.RemoteSnapshot, &record); err != nil {
		return nil, fmt.Errorf("decode remote snapshot: %w", err)
	}

	if _, err := rm.Upsert(ctx, record, remote.Meta{URI: pc.URI, Version: pc.RemoteVersion}); err != nil {
		return nil, fmt.Errorf("apply remote snapshot: %w", err)
	}

	return s.close(ctx, pc, StatusResolved, SideRemote)
}

// Dismiss закрывает конфликт без изменений с обеих сторон
func (s *Service) Dismiss(ctx context.Context, id string) (*PendingConflict, error) {
	pc, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.close(ctx, pc, StatusDismissed, "")
}

func (s *Service) open(ctx context.Context, id string) (*PendingConflict, error) {
	pc, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pc.IsPending() {
		return nil, fmt.Errorf("%w: %s is %s", ErrConflictClosed, id, pc.Status)
	}
	return pc, nil
}

func (s *Service) close(ctx context.Context, pc *PendingConflict, status Status, side Side) (*PendingConflict, error) {
	now := s.now()
	pc.Status = status
	pc.Resolution = side
	pc.ResolvedAt = &now

	if err := s.repo.Update(ctx, pc); err != nil {
		return nil, fmt.Errorf("update conflict: %w", err)
	}

	s.log.Info("conflict closed", "conflict_id", pc.ID, "status", status, "resolution", side)
	return pc, nil
}
