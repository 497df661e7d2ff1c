package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/wholesale-backend/api/responses"
	pkgAuth "github.com/angelmondragon/wholesale-backend/pkg/auth"
	"github.com/angelmondragon/wholesale-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
)

var errMissingCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")

// bearerToken accepts "Bearer <jwt>" in any case, or a bare token.
func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > len("bearer ") && strings.EqualFold(raw[:len("bearer ")], "bearer ") {
		raw = raw[len("bearer "):]
	}
	return strings.TrimSpace(raw)
}

// Auth requires a valid access token and puts the caller's user id and role
// on the request and log contexts.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, errMissingCredentials)
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID, role := claims.UserID.String(), string(claims.Role)
			ctx := WithRole(WithUserID(r.Context(), userID), role)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
