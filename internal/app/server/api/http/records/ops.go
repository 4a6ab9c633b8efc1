package records

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "list-records",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{collection}",
		Summary:     "List mirrored records of the owner",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "create-record",
		Method:        http.MethodPost,
		Path:          "/api/v1/records",
		Summary:       "Create local record and publish it",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity, http.StatusBadGateway},
		Middlewares:   h.middleware,
		Security:      []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "update-record",
		Method:      http.MethodPut,
		Path:        "/api/v1/records/{collection}/{id}",
		Summary:     "Update local record and republish it",
		Tags:        []string{"records"},
		Errors:      []int{http.StatusNotFound, http.StatusBadGateway},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "delete-record",
		Method:      http.MethodDelete,
		Path:        "/api/v1/records/{collection}/{id}",
		Summary:     "Delete remote and local record",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
