package records

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/mapper"
	"reposync/internal/domain/publish"
	"reposync/internal/domain/remote"
	"reposync/internal/infrastructure/storage/sqlite"
)

// Store локальные зеркальные записи
type Store interface {
	mapper.ModelStore
	List(ctx context.Context, owner, collection string, limit int) ([]*sqlite.Record, error)
}

// Observer публикация локальных изменений
type Observer interface {
	OnCreated(ctx context.Context, m mapper.Model) publish.Result
	OnUpdated(ctx context.Context, m mapper.Model) publish.Result
	OnDeleted(ctx context.Context, m mapper.Model) error
}

// Collections реестр синхронизируемых коллекций
type Collections interface {
	ForCollection(collection string) (mapper.RecordMapper, bool)
}

type Handler struct {
	store       Store
	observer    Observer
	collections Collections
	log         *slog.Logger
	middleware  huma.Middlewares
}

func NewHandler(store Store, observer Observer, collections Collections, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		store:       store,
		observer:    observer,
		collections: collections,
		log:         log,
		middleware:  mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	recs, err := h.store.List(ctx, input.Owner, input.Collection, input.Limit)
	if err != nil {
		h.log.Error("failed to list records", "owner", input.Owner, "collection", input.Collection, "error", err)
		return nil, huma.Error500InternalServerError("failed to list records", err)
	}
	return &listOutput{Body: RecordListResponse{Records: recs}}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	if _, ok := h.collections.ForCollection(input.Body.Collection); !ok {
		return nil, huma.Error422UnprocessableEntity("collection is not synchronized: " + input.Body.Collection)
	}

	rec := sqlite.NewRecord(input.Body.Owner, input.Body.Collection, input.Body.Value)
	if err := h.store.Save(ctx, rec); err != nil {
		h.log.Error("failed to save record", "collection", rec.Collection, "error", err)
		return nil, huma.Error500InternalServerError("failed to save record", err)
	}

	res := h.observer.OnCreated(ctx, rec)
	return h.published(rec, res)
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*output, error) {
	rec, err := h.find(ctx, input.Collection, input.ID)
	if err != nil {
		return nil, err
	}

	rec.Value = input.Body.Value
	rec.Touch()
	if err := h.store.Save(ctx, rec); err != nil {
		h.log.Error("failed to save record", "id", rec.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to save record", err)
	}

	res := h.observer.OnUpdated(ctx, rec)
	return h.published(rec, res)
}

func (h *Handler) delete(ctx context.Context, input *idInput) (*output, error) {
	rec, err := h.find(ctx, input.Collection, input.ID)
	if err != nil {
		return nil, err
	}

	// сбой без признака аутентификации уже поставлен в очередь вместе с URI
	if err := h.observer.OnDeleted(ctx, rec); err != nil {
		if remote.IsAuth(err) {
			return nil, huma.Error502BadGateway("remote authentication invalid", err)
		}
		h.log.Warn("remote delete deferred", "id", rec.ID, "error", err)
	}

	if err := h.store.Delete(ctx, rec); err != nil {
		h.log.Error("failed to delete record", "id", rec.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to delete record", err)
	}
	return &output{Body: RecordResponse{Status: "Ok"}}, nil
}

func (h *Handler) find(ctx context.Context, collection, id string) (*sqlite.Record, error) {
	m, err := h.store.Find(ctx, collection, id)
	if err != nil {
		if errors.Is(err, mapper.ErrModelNotFound) {
			return nil, huma.Error404NotFound("record not found")
		}
		h.log.Error("failed to find record", "id", id, "error", err)
		return nil, huma.Error500InternalServerError("failed to find record", err)
	}
	rec, ok := m.(*sqlite.Record)
	if !ok {
		return nil, huma.Error500InternalServerError("unexpected model type")
	}
	return rec, nil
}

// published локальная запись сохранена в любом случае. Pending означает, что публикация
// стоит в очереди повторов; Failed что повтора не будет.
func (h *Handler) published(rec *sqlite.Record, res publish.Result) (*output, error) {
	if res.Success {
		return &output{Body: RecordResponse{Status: "Ok", Record: rec, Sync: &res}}, nil
	}
	if remote.IsAuth(res.Err) {
		return nil, huma.Error502BadGateway("remote authentication invalid", res.Err)
	}

	out := &output{Body: RecordResponse{Status: "Failed", Record: rec, Sync: &res, Error: res.Error}}
	if res.Queued {
		out.Body.Status = "Pending"
	} else {
		h.log.Warn("record saved locally but not published", "id", rec.ID, "error", res.Error)
	}
	return out, nil
}
