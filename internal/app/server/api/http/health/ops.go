package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Description: "Pings the local store; responds 503 when it is unavailable",
		Tags:        []string{"health"},
		Middlewares: h.middleware,
		Errors:      []int{http.StatusServiceUnavailable},
	}
}
