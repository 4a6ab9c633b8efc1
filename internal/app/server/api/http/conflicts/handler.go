package conflicts

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/conflict"
)

type Servicer interface {
	List(ctx context.Context, status conflict.Status) ([]*conflict.PendingConflict, error)
	Get(ctx context.Context, id string) (*conflict.PendingConflict, error)
	ResolveWithLocal(ctx context.Context, id string) (*conflict.PendingConflict, error)
	ResolveWithRemote(ctx context.Context, id string) (*conflict.PendingConflict, error)
	Dismiss(ctx context.Context, id string) (*conflict.PendingConflict, error)
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
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.resolveOp(), h.resolve)
	huma.Register(api, h.dismissOp(), h.dismiss)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	items, err := h.service.List(ctx, conflict.Status(input.Status))
	if err != nil {
		return nil, h.fail("list", "", err)
	}
	return &listOutput{Body: ConflictListResponse{Conflicts: items}}, nil
}

func (h *Handler) get(ctx context.Context, input *idInput) (*conflictOutput, error) {
	pc, err := h.service.Get(ctx, input.ID)
	if err != nil {
		return nil, h.fail("get", input.ID, err)
	}
	return &conflictOutput{Body: pc}, nil
}

func (h *Handler) resolve(ctx context.Context, input *resolveInput) (*conflictOutput, error) {
	var (
		pc  *conflict.PendingConflict
		err error
	)
	switch conflict.Side(input.Body.Winner) {
	case conflict.SideLocal:
		pc, err = h.service.ResolveWithLocal(ctx, input.ID)
	case conflict.SideRemote:
		pc, err = h.service.ResolveWithRemote(ctx, input.ID)
	default:
		return nil, huma.Error422UnprocessableEntity("winner must be local or remote")
	}
	if err != nil {
		return nil, h.fail("resolve", input.ID, err)
	}
	return &conflictOutput{Body: pc}, nil
}

func (h *Handler) dismiss(ctx context.Context, input *idInput) (*conflictOutput, error) {
	pc, err := h.service.Dismiss(ctx, input.ID)
	if err != nil {
		return nil, h.fail("dismiss", input.ID, err)
	}
	return &conflictOutput{Body: pc}, nil
}

func (h *Handler) fail(op, id string, err error) error {
	switch {
	case errors.Is(err, conflict.ErrConflictNotFound):
		return huma.Error404NotFound("conflict not found")
	case errors.Is(err, conflict.ErrConflictClosed):
		return huma.Error409Conflict(err.Error())
	}
	h.log.Error("failed to "+op+" conflict", "conflict_id", id, "error", err)
	return huma.Error500InternalServerError("failed to "+op+" conflict", err)
}
