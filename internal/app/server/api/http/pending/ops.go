package pending

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "list-pending",
		Method:      http.MethodGet,
		Path:        "/api/v1/pending/{owner}",
		Summary:     "List queued operations of the owner",
		Tags:        []string{"pending"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) retryOp() huma.Operation {
	return huma.Operation{
		OperationID: "retry-pending",
		Method:      http.MethodPost,
		Path:        "/api/v1/pending/{owner}/retry",
		Summary:     "Replay queued operations",
		Description: "Replays queued operations in capture order; stops on remote authentication failure",
		Tags:        []string{"pending"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) clearOp() huma.Operation {
	return huma.Operation{
		OperationID: "clear-pending",
		Method:      http.MethodDelete,
		Path:        "/api/v1/pending/{owner}",
		Summary:     "Drop queued operations of the owner",
		Tags:        []string{"pending"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) pruneOp() huma.Operation {
	return huma.Operation{
		OperationID: "prune-pending",
		Method:      http.MethodPost,
		Path:        "/api/v1/pending/prune",
		Summary:     "Remove expired operations of all owners",
		Tags:        []string{"pending"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
