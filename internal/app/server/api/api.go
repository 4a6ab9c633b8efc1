// Package api операторский HTTP API:
//
//	GET    /api/v1/health                          # Проверка доступности (публичный)
//	POST   /api/v1/imports/{owner}                 # Импорт коллекций владельца
//	GET    /api/v1/imports/{owner}                 # Прогресс импорта
//	DELETE /api/v1/imports/{owner}/{collection}    # Сброс состояния импорта
//	GET    /api/v1/conflicts                       # Отложенные конфликты
//	GET    /api/v1/conflicts/{id}                  # Конфликт со снимками
//	POST   /api/v1/conflicts/{id}/resolve          # Решение оператора
//	POST   /api/v1/conflicts/{id}/dismiss          # Закрыть без изменений
//	GET    /api/v1/pending/{owner}                 # Очередь повторов владельца
//	POST   /api/v1/pending/{owner}/retry           # Повторить операции
//	DELETE /api/v1/pending/{owner}                 # Очистить очередь
//	POST   /api/v1/pending/prune                   # Удалить просроченные операции
//	GET    /api/v1/records/{collection}            # Локальные записи
//	POST   /api/v1/records                         # Создать и опубликовать
//	PUT    /api/v1/records/{collection}/{id}       # Изменить и опубликовать
//	DELETE /api/v1/records/{collection}/{id}       # Удалить с обеих сторон
//	POST   /api/v1/signals                         # Уведомление о коммите
package api

import (
	"path"
	"reflect"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"reposync/internal/app"
	conflictsAPI "reposync/internal/app/server/api/http/conflicts"
	healthAPI "reposync/internal/app/server/api/http/health"
	importsAPI "reposync/internal/app/server/api/http/imports"
	"reposync/internal/app/server/api/http/middleware"
	"reposync/internal/app/server/api/http/middleware/auth"
	"reposync/internal/app/server/api/http/middleware/logger"
	pendingAPI "reposync/internal/app/server/api/http/pending"
	recordsAPI "reposync/internal/app/server/api/http/records"
	signalsAPI "reposync/internal/app/server/api/http/signals"
)

type Handlers struct {
	Health    *healthAPI.Handler
	Imports   *importsAPI.Handler
	Conflicts *conflictsAPI.Handler
	Pending   *pendingAPI.Handler
	Records   *recordsAPI.Handler
	Signals   *signalsAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(a *app.App, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("reposync API", "1.0.0")
	config.Components.Schemas = huma.NewMapRegistry("#/components/schemas/", schemaName)
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(a, log)
	h.Health.SetupRoutes(API)
	h.Imports.SetupRoutes(API)
	h.Conflicts.SetupRoutes(API)
	h.Pending.SetupRoutes(API)
	h.Records.SetupRoutes(API)
	h.Signals.SetupRoutes(API)

	return mux
}

// schemaName добавляет к имени схемы доменный пакет: importer.Result и publish.Result
// попадают в один реестр.
func schemaName(t reflect.Type, hint string) string {
	name := huma.DefaultSchemaNamer(t, hint)
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Name() == "" || !strings.HasPrefix(t.PkgPath(), "reposync/internal/domain/") &&
		!strings.HasPrefix(t.PkgPath(), "reposync/internal/infrastructure/") {
		return name
	}
	pkg := path.Base(t.PkgPath())
	return strings.ToUpper(pkg[:1]) + pkg[1:] + name
}

func handlers(a *app.App, log *slog.Logger) *Handlers {
	authMW := auth.New(a.Config.Server.APIToken, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(a.Local.DB(), log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware(), loggerMW.Middleware())
	importsHandler := importsAPI.NewHandler(a.Importer, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware(), loggerMW.Middleware())
	conflictsHandler := conflictsAPI.NewHandler(a.Conflicts, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware(), loggerMW.Middleware())
	pendingHandler := pendingAPI.NewHandler(a.Pending, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware(), loggerMW.Middleware())
	recordsHandler := recordsAPI.NewHandler(a.Local.Records(), a.Observer, a.Registry, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware(), loggerMW.Middleware())
	signalsHandler := signalsAPI.NewHandler(a.Signals, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:    healthHandler,
		Imports:   importsHandler,
		Conflicts: conflictsHandler,
		Pending:   pendingHandler,
		Records:   recordsHandler,
		Signals:   signalsHandler,
	}
}
