package signals

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/remote"
	"reposync/internal/domain/signal"
)

type Servicer interface {
	Handle(ctx context.Context, ev signal.Event) (signal.Outcome, error)
}

type Handler struct {
	service    Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.signalOp(), h.apply)
}

func (h *Handler) apply(ctx context.Context, input *signalInput) (*signalOutput, error) {
	out, err := h.service.Handle(ctx, input.Body)
	if err != nil {
		if errors.Is(err, signal.ErrUnknownOperation) || errors.Is(err, signal.ErrMissingRecord) ||
			errors.Is(err, remote.ErrInvalidURI) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		h.log.Error("failed to apply signal", "uri", input.Body.URI(), "error", err)
		return nil, huma.Error500InternalServerError("failed to apply signal", err)
	}

	resp := SignalResponse{Action: out.Action, Resolution: out.Resolution}
	if out.Model != nil {
		resp.ModelID = out.Model.ModelID()
	}
	return &signalOutput{Body: resp}, nil
}
