package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Auth проверяет статический bearer-токен оператора
type Auth struct {
	token string
	log   *slog.Logger
}

// New создает middleware; пустой token пропускает все запросы
func New(token string, log *slog.Logger) *Auth {
	return &Auth{
		token: token,
		log:   log.With("component", "auth_middleware"),
	}
}

func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if a.token == "" {
			next(ctx)
			return
		}

		header := ctx.Header("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			a.log.Warn("unauthorized request", "path", ctx.URL().Path)
			ctx.SetStatus(http.StatusUnauthorized)
			ctx.SetHeader("Content-Type", "application/json")

			if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
				"error": "Unauthorized",
			}); err != nil {
				a.log.Error("failed to encode response", "error", err)
			}
			return
		}

		next(ctx)
	}
}
