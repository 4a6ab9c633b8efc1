package importer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/event"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/remote"
)

const DefaultPageSize = 100

// Service постранично импортирует записи удаленного репозитория в локальные модели.
//
// Для каждой пары (owner, collection) допускается не более одного импорта одновременно:
// параллельные вызовы для одной пары гонятся за курсором и счетчиками.
// Обеспечить это должен вызывающий код (очередь с одним писателем или блокировка).
type Service struct {
	repo     Repository
	remote   remote.Repository
	resolver remote.Resolver
	registry *mapper.Registry
	events   event.Dispatcher
	log      *slog.Logger
	config   *Config
	now      func() time.Time
}

// NewService создает импортер. resolver может быть nil, тогда адрес владельца не проверяется.
func NewService(
	repo Repository,
	rem remote.Repository,
	resolver remote.Resolver,
	registry *mapper.Registry,
	events event.Dispatcher,
	log *slog.Logger,
	config *Config,
) *Service {
	if config == nil {
		config = &Config{PageSize: DefaultPageSize}
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if events == nil {
		events = event.Nop{}
	}

	return &Service{
		repo:     repo,
		remote:   rem,
		resolver: resolver,
		registry: registry,
		events:   events,
		log:      log.With("component", "importer"),
		config:   config,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ImportCollection импортирует коллекцию владельца, продолжая с сохраненного курсора.
// Завершенный импорт повторно не выполняется: возвращается сохраненный результат.
func (s *Service) ImportCollection(ctx context.Context, owner, collection string) Result {
	m, ok := s.registry.ForCollection(collection)
	if !ok {
		return Result{
			Owner:      owner,
			Collection: collection,
			Error:      fmt.Sprintf("%v: %s", mapper.ErrNoMapper, collection),
		}
	}

	state, err := s.repo.FindOrCreate(ctx, owner, collection)
	if err != nil {
		s.log.Error("failed to load import state", "owner", owner, "collection", collection, "error", err)
		return Result{
			Owner:      owner,
			Collection: collection,
			Error:      fmt.Sprintf("load import state: %v", err),
		}
	}

	if state.Status == StatusCompleted {
		s.log.Debug("import already completed", "owner", owner, "collection", collection)
		return resultFromState(state)
	}

	if s.resolver != nil {
		if _, err := s.resolver.ResolveEndpoint(ctx, owner); err != nil {
			return s.fail(ctx, state, fmt.Errorf("resolve endpoint: %w", err))
		}
	}

	state.start(s.now())
	if err := s.repo.Save(ctx, state); err != nil {
		return s.fail(ctx, state, fmt.Errorf("save import state: %w", err))
	}
	s.events.Dispatch(ctx, event.ImportStarted{Owner: owner, Collection: collection, Cursor: state.Cursor})
	s.log.Info("import started", "owner", owner, "collection", collection, "cursor", state.Cursor)

	// счетчики последней страницы; курсор при этом остается курсором ее запроса
	var last [3]int
	for {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, state, err)
		}

		page, err := s.remote.ListRecords(ctx, owner, collection, state.Cursor, s.config.PageSize)
		if err != nil {
			return s.fail(ctx, state, fmt.Errorf("list records: %w", err))
		}

		synced, skipped, failed := s.applyPage(ctx, m, page.Items)
		state.Synced += synced
		state.Skipped += skipped
		state.Failed += failed

		if page.Cursor == "" {
			last = [3]int{synced, skipped, failed}
			break
		}
		state.Cursor = page.Cursor

		if err := s.repo.Save(ctx, state); err != nil {
			return s.fail(ctx, state, fmt.Errorf("save import state: %w", err))
		}
		s.progress(ctx, state)

		if s.config.PageDelay > 0 {
			if err := sleep(ctx, s.config.PageDelay); err != nil {
				return s.fail(ctx, state, err)
			}
		}
	}

	s.progress(ctx, state)
	resume := state.Cursor
	state.complete(s.now())
	if err := s.repo.Save(ctx, state); err != nil {
		// последняя страница будет прочитана заново при возобновлении
		state.Cursor = resume
		state.CompletedAt = nil
		state.Synced -= last[0]
		state.Skipped -= last[1]
		state.Failed -= last[2]
		return s.fail(ctx, state, fmt.Errorf("save import state: %w", err))
	}

	s.events.Dispatch(ctx, event.ImportCompleted{
		Owner:      owner,
		Collection: collection,
		Synced:     state.Synced,
		Skipped:    state.Skipped,
		Failed:     state.Failed,
	})
	s.log.Info("import completed",
		"owner", owner,
		"collection", collection,
		"synced", state.Synced,
		"skipped", state.Skipped,
		"failed", state.Failed,
	)

	return resultFromState(state)
}

// ImportUser последовательно импортирует перечисленные коллекции владельца,
// а без аргументов все зарегистрированные.
func (s *Service) ImportUser(ctx context.Context, owner string, collections ...string) UserResult {
	if len(collections) == 0 {
		collections = s.registry.Collections()
	}

	result := UserResult{Owner: owner}
	if len(collections) == 0 {
		s.log.Warn("nothing to import", "owner", owner, "error", ErrNoCollections)
		return result
	}

	result.Completed = true
	for _, c := range collections {
		if ctx.Err() != nil {
			result.Completed = false
			break
		}

		r := s.ImportCollection(ctx, owner, c)
		result.Collections = append(result.Collections, r)
		result.Synced += r.Synced
		result.Skipped += r.Skipped
		result.Failed += r.Failed
		if !r.Completed {
			result.Completed = false
		}
	}

	return result
}

// Reset удаляет состояние импорта, после чего коллекция импортируется заново
func (s *Service) Reset(ctx context.Context, owner, collection string) error {
	if err := s.repo.Delete(ctx, owner, collection); err != nil {
		return fmt.Errorf("reset import state: %w", err)
	}
	s.log.Info("import state reset", "owner", owner, "collection", collection)
	return nil
}

// Status возвращает состояния импорта владельца
func (s *Service) Status(ctx context.Context, owner string) ([]*State, error) {
	states, err := s.repo.ListForOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list import states: %w", err)
	}
	return states, nil
}

func (s *Service) applyPage(ctx context.Context, m mapper.RecordMapper, items []remote.Item) (synced, skipped, failed int) {
	for _, item := range items {
		model, err := m.Upsert(ctx, item.Value, item.Meta())
		switch {
		case err != nil:
			failed++
			s.log.Warn("failed to map record", "uri", item.URI, "error", err)
		case model == nil:
			skipped++
		default:
			synced++
		}
	}
	return synced, skipped, failed
}

func (s *Service) progress(ctx context.Context, state *State) {
	s.events.Dispatch(ctx, event.ImportProgress{
		Owner:      state.Owner,
		Collection: state.Collection,
		Cursor:     state.Cursor,
		Synced:     state.Synced,
		Skipped:    state.Skipped,
		Failed:     state.Failed,
	})
}

// fail переводит импорт в failed, сохраняя курсор и счетчики для продолжения
func (s *Service) fail(ctx context.Context, state *State, err error) Result {
	state.fail(err.Error())
	if serr := s.repo.Save(context.WithoutCancel(ctx), state); serr != nil {
		s.log.Error("failed to save failed import state",
			"owner", state.Owner, "collection", state.Collection, "error", serr)
	}

	s.events.Dispatch(ctx, event.ImportFailed{
		Owner:      state.Owner,
		Collection: state.Collection,
		Error:      state.Error,
	})
	s.log.Error("import failed",
		"owner", state.Owner,
		"collection", state.Collection,
		"cursor", state.Cursor,
		"error", err,
	)

	return resultFromState(state)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
