package imports

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) importOp() huma.Operation {
	return huma.Operation{
		OperationID: "import-user",
		Method:      http.MethodPost,
		Path:        "/api/v1/imports/{owner}",
		Summary:     "Import owner collections",
		Description: "Imports the owner's collections, resuming from saved cursors",
		Tags:        []string{"imports"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "import-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/imports/{owner}",
		Summary:     "Import progress",
		Tags:        []string{"imports"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) resetOp() huma.Operation {
	return huma.Operation{
		OperationID: "import-reset",
		Method:      http.MethodDelete,
		Path:        "/api/v1/imports/{owner}/{collection}",
		Summary:     "Reset import state",
		Description: "Deletes the import state so the next import starts from the beginning",
		Tags:        []string{"imports"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
