package pending

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/pending"
	"reposync/internal/domain/remote"
)

type Servicer interface {
	Entries(ctx context.Context, owner string) ([]*pending.Entry, error)
	RetryForOwner(ctx context.Context, owner string) (pending.RetryResult, error)
	Clear(ctx context.Context, owner string) (int, error)
	PruneExpired(ctx context.Context) (int, error)
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
	huma.Register(api, h.pruneOp(), h.prune)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.retryOp(), h.retry)
	huma.Register(api, h.clearOp(), h.clear)
}

func (h *Handler) list(ctx context.Context, input *ownerInput) (*listOutput, error) {
	entries, err := h.service.Entries(ctx, input.Owner)
	if err != nil {
		h.log.Error("failed to list pending entries", "owner", input.Owner, "error", err)
		return nil, huma.Error500InternalServerError("failed to list pending entries", err)
	}
	return &listOutput{Body: PendingListResponse{Owner: input.Owner, Count: len(entries), Entries: entries}}, nil
}

func (h *Handler) retry(ctx context.Context, input *ownerInput) (*retryOutput, error) {
	res, err := h.service.RetryForOwner(ctx, input.Owner)
	if err != nil {
		if remote.IsAuth(err) {
			return nil, huma.Error502BadGateway("remote authentication invalid, re-authenticate before retrying", err)
		}
		h.log.Error("failed to retry pending entries", "owner", input.Owner, "error", err)
		return nil, huma.Error500InternalServerError("failed to retry pending entries", err)
	}
	return &retryOutput{Body: res}, nil
}

func (h *Handler) clear(ctx context.Context, input *ownerInput) (*countOutput, error) {
	n, err := h.service.Clear(ctx, input.Owner)
	if err != nil {
		h.log.Error("failed to clear pending entries", "owner", input.Owner, "error", err)
		return nil, huma.Error500InternalServerError("failed to clear pending entries", err)
	}
	return &countOutput{Body: CountResponse{Removed: n}}, nil
}

func (h *Handler) prune(ctx context.Context, _ *struct{}) (*countOutput, error) {
	n, err := h.service.PruneExpired(ctx)
	if err != nil {
		h.log.Error("failed to prune pending entries", "error", err)
		return nil, huma.Error500InternalServerError("failed to prune pending entries", err)
	}
	return &countOutput{Body: CountResponse{Removed: n}}, nil
}
