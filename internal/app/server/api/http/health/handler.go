package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Pinger проверка доступности хранилища
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	db         Pinger
	log        *slog.Logger
	middleware huma.Middlewares
}

// NewHandler создает обработчик; db может быть nil, тогда хранилище не проверяется
func NewHandler(db Pinger, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		db:         db,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	store := "unchecked"
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.log.Error("failed to ping local store", "error", err)
			return nil, huma.Error503ServiceUnavailable("local store unavailable")
		}
		store = "ok"
	}

	return &Output{
		Body: HResponse{
			Status: "OK",
			Store:  store,
		},
	}, nil
}
