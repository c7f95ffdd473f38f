package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/rxexchange-backend/api/middleware"
	internalorders "github.com/angelmondragon/rxexchange-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
)

// actorFromRequest builds the service actor from the claims the auth
// middleware placed on the context. A missing tenant is left nil so the
// service can answer NO_TENANT.
func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	ctx := r.Context()
	userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	actor := internalorders.Actor{
		UserID: userID,
		Role:   middleware.RoleFromContext(ctx),
	}
	if raw := middleware.TenantIDFromContext(ctx); raw != "" {
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid tenant context")
		}
		actor.TenantID = &tenantID
	}
	if tenantType, ok := middleware.TenantTypeFromContext(ctx); ok {
		actor.TenantType = tenantType
	}
	return actor, nil
}
