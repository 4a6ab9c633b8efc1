package imports

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/importer"
)

type Servicer interface {
	ImportUser(ctx context.Context, owner string, collections ...string) importer.UserResult
	Status(ctx context.Context, owner string) ([]*importer.State, error)
	Reset(ctx context.Context, owner, collection string) error
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
	huma.Register(api, h.importOp(), h.importUser)
	huma.Register(api, h.statusOp(), h.status)
	huma.Register(api, h.resetOp(), h.reset)
}

func (h *Handler) importUser(ctx context.Context, input *importInput) (*importOutput, error) {
	res := h.service.ImportUser(ctx, input.Owner, input.Body.Collections...)
	return &importOutput{Body: res}, nil
}

func (h *Handler) status(ctx context.Context, input *statusInput) (*statusOutput, error) {
	states, err := h.service.Status(ctx, input.Owner)
	if err != nil {
		h.log.Error("failed to load import status", "owner", input.Owner, "error", err)
		return nil, huma.Error500InternalServerError("failed to load import status", err)
	}
	return &statusOutput{Body: StatusResponse{Owner: input.Owner, States: states}}, nil
}

func (h *Handler) reset(ctx context.Context, input *resetInput) (*resetOutput, error) {
	if err := h.service.Reset(ctx, input.Owner, input.Collection); err != nil {
		h.log.Error("failed to reset import", "owner", input.Owner, "collection", input.Collection, "error", err)
		return nil, huma.Error500InternalServerError("failed to reset import", err)
	}
	return &resetOutput{Body: ResetResponse{Status: "Ok"}}, nil
}
