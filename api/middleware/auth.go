package middleware

import (
	"net/http"
	"strings"

	"github.com/trato-app/trato-backend/api/responses"
	pkgauth "github.com/trato-app/trato-backend/pkg/auth"
	"github.com/trato-app/trato-backend/pkg/config"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
	"github.com/trato-app/trato-backend/pkg/logger"
)

// Auth verifies the bearer token and seeds the request context with the
// member's identity and role.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID := claims.UserID.String()
			role := string(claims.Role)

			ctx := WithRole(WithUserID(r.Context(), userID), role)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    userID,
					"actor_role": role,
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts both "Bearer <token>" and a bare token value.
func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, found := strings.Cut(raw, " "); found && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return raw
}
