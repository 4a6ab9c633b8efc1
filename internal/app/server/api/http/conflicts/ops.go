package conflicts

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "list-conflicts",
		Method:      http.MethodGet,
		Path:        "/api/v1/conflicts",
		Summary:     "List deferred conflicts",
		Tags:        []string{"conflicts"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "get-conflict",
		Method:      http.MethodGet,
		Path:        "/api/v1/conflicts/{id}",
		Summary:     "Get conflict with both snapshots",
		Tags:        []string{"conflicts"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) resolveOp() huma.Operation {
	return huma.Operation{
		OperationID: "resolve-conflict",
		Method:      http.MethodPost,
		Path:        "/api/v1/conflicts/{id}/resolve",
		Summary:     "Resolve conflict",
		Description: "local re-publishes the local model, remote applies the stored remote snapshot",
		Tags:        []string{"conflicts"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) dismissOp() huma.Operation {
	return huma.Operation{
		OperationID: "dismiss-conflict",
		Method:      http.MethodPost,
		Path:        "/api/v1/conflicts/{id}/dismiss",
		Summary:     "Dismiss conflict without changes",
		Tags:        []string{"conflicts"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
