package middleware

import (
	"net/http"

	"github.com/angelmondragon/rxexchange-backend/api/responses"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
)

// RequireTenantType rejects callers whose token is not bound to a tenant of
// one of the given types.
func RequireTenantType(logg *logger.Logger, allowed ...enums.TenantType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if TenantIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNoTenant, "tenant context required"))
				return
			}
			tenantType, ok := TenantTypeFromContext(r.Context())
			if ok {
				for _, candidate := range allowed {
					if candidate == tenantType {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "tenant type not permitted"))
		})
	}
}
