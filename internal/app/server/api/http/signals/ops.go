package signals

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) signalOp() huma.Operation {
	return huma.Operation{
		OperationID: "apply-signal",
		Method:      http.MethodPost,
		Path:        "/api/v1/signals",
		Summary:     "Apply remote commit notification",
		Description: "Applies a create, update or delete of one remote record to the local store, detecting conflicts first",
		Tags:        []string{"signals"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
