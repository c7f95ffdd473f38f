package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/rxexchange-backend/api/responses"
	pkgAuth "github.com/angelmondragon/rxexchange-backend/pkg/auth"
	"github.com/angelmondragon/rxexchange-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRole(ctx, string(claims.Role))
			if claims.TenantID != nil {
				ctx = WithTenantID(ctx, claims.TenantID.String())
			}
			if claims.TenantType != nil {
				ctx = WithTenantType(ctx, *claims.TenantType)
			}

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
				if claims.TenantID != nil {
					ctx = logg.WithTenantID(ctx, claims.TenantID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
