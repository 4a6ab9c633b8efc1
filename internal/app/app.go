// Package app собирает компоненты синхронизации из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"reposync/internal/config"
	"reposync/internal/domain/autosync"
	"reposync/internal/domain/conflict"
	"reposync/internal/domain/event"
	"reposync/internal/domain/importer"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/pending"
	"reposync/internal/domain/publish"
	"reposync/internal/domain/remote"
	"reposync/internal/domain/signal"
	"reposync/internal/infrastructure/remote/xrpc"
	"reposync/internal/infrastructure/storage"
	"reposync/internal/infrastructure/storage/sqlite"
)

type App struct {
	Config   *config.Config
	Log      *slog.Logger
	Strategy conflict.Strategy

	Local       *sqlite.Storage
	Bookkeeping *storage.Bookkeeping
	Events      *event.Bus
	Registry    *mapper.Registry
	Remote      *xrpc.Client
	Resolver    remote.Resolver

	Importer   *importer.Service
	Engine     *publish.Engine
	References *publish.ReferenceEngine
	Pending    *pending.Manager
	Conflicts  *conflict.Service
	Signals    *signal.Handler
	Observer   *autosync.Observer

	remoteRepo remote.Repository
}

// Option меняет зависимости до сборки сервисов
type Option func(a *App)

// WithRemote подменяет клиент удаленного репозитория
func WithRemote(rem remote.Repository) Option {
	return func(a *App) { a.remoteRepo = rem }
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	strategy, err := conflict.ParseStrategy(cfg.Conflict.Strategy)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Strategy: strategy,
		Events:   event.NewBus(),
		Registry: mapper.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.Events.SubscribeAll(event.LogHandler(log))

	a.Local, err = sqlite.New(cfg.DB.SQLitePath, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	a.Bookkeeping, err = storage.Open(ctx, cfg.DB.Driver, cfg.DB.DatabaseURI, a.Local, log)
	if err != nil {
		_ = a.Local.Close()
		return nil, err
	}

	records := a.Local.Records()
	for _, collection := range cfg.Import.Collections {
		if err := a.Registry.Register(sqlite.NewMapper(collection, records)); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("register collection %s: %w", collection, err)
		}
	}

	a.Resolver = newResolver(cfg, log)
	if a.remoteRepo == nil {
		a.Remote = xrpc.NewClient(a.Resolver, &xrpc.Config{Token: cfg.Remote.AccessToken}, log)
		a.remoteRepo = a.Remote
	}

	a.Importer = importer.NewService(a.Bookkeeping.ImportStates, a.remoteRepo, a.Resolver, a.Registry, a.Events, log,
		&importer.Config{PageSize: cfg.Import.PageSize, PageDelay: cfg.Import.PageDelay})

	a.Engine = publish.NewEngine(a.remoteRepo, records, a.Events, log)
	a.References = publish.NewReferenceEngine(a.Engine, a.Events, log)

	a.Pending = pending.NewManager(a.Bookkeeping.PendingSyncs, a.Engine, a.References, a.Registry, records, a.Events, log,
		&pending.Config{MaxAttempts: cfg.Pending.MaxAttempts, TTL: cfg.Pending.TTL})

	resolver := conflict.NewResolver(a.Bookkeeping.Conflicts, a.Events, log)
	a.Conflicts = conflict.NewService(a.Bookkeeping.Conflicts, a.Registry, records, a.Engine, log)
	a.Signals = signal.NewHandler(a.Registry, records, resolver, strategy, log)
	a.Observer = autosync.NewObserver(a.Engine, a.References, a.Pending, a.Registry, log,
		&autosync.Config{Durable: true})

	log.Info("application initialized",
		"storage_driver", a.Bookkeeping.Driver,
		"collections", a.Registry.Collections(),
		"conflict_strategy", strategy,
	)
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Bookkeeping != nil {
		errs = append(errs, a.Bookkeeping.Close())
	}
	if a.Local != nil {
		errs = append(errs, a.Local.Close())
	}
	return errors.Join(errs...)
}

// newResolver: фиксированный хост, если он задан, иначе каталог DID
func newResolver(cfg *config.Config, log *slog.Logger) remote.Resolver {
	if cfg.Remote.PDSHost != "" {
		return xrpc.StaticResolver{Endpoint: cfg.Remote.PDSHost}
	}
	return xrpc.NewDirectoryResolver(cfg.Remote.PLCURL, nil, log)
}
