package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/rxexchange-backend/api/responses"
	"github.com/angelmondragon/rxexchange-backend/api/validators"
	internalorders "github.com/angelmondragon/rxexchange-backend/internal/orders"
	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	"github.com/angelmondragon/rxexchange-backend/pkg/pagination"
)

const (
	maxNotesLength    = 2000
	maxReasonLength   = 500
	maxTrackingLength = 128
)

type createOrderRequest struct {
	SupplyListingID string  `json:"supply_listing_id" validate:"required,uuid"`
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Create places an order for the caller's pharmacy tenant.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := uuid.Parse(body.SupplyListingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid supply_listing_id"))
			return
		}

		var notes *string
		if body.Notes != nil {
			if trimmed := validators.SanitizeString(*body.Notes, maxNotesLength); trimmed != "" {
				notes = &trimmed
			}
		}

		order, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			Actor:           actor,
			SupplyListingID: listingID,
			Quantity:        body.Quantity,
			Notes:           notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.NewOrderView(order))
	}
}

// List pages through orders where the caller's tenant is the given party.
// The role defaults from the tenant type when omitted.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := validators.ParseQueryEnum(r, "status", enums.ParseOrderStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role := internalorders.ListRole(validators.QueryString(r, "role"))
		if role == "" {
			role = defaultListRole(actor.TenantType)
		}

		input := internalorders.ListOrdersInput{
			Actor:  actor,
			Role:   role,
			Status: status,
			Params: pagination.Params{
				Limit:  limit,
				Cursor: validators.QueryString(r, "cursor"),
			},
		}

		list, err := svc.ListOrders(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order visible to the caller.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

// CancelOrder lets the buying pharmacy withdraw a pending order.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(svc internalorders.Service, r *http.Request, input internalorders.TransitionInput) (*models.Order, error) {
		return svc.CancelByBuyer(r.Context(), input)
	})
}

// ConfirmReceipt records delivery from the buyer's side.
func ConfirmReceipt(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(svc internalorders.Service, r *http.Request, input internalorders.TransitionInput) (*models.Order, error) {
		return svc.ConfirmReceipt(r.Context(), input)
	})
}

func defaultListRole(tenantType enums.TenantType) internalorders.ListRole {
	switch tenantType {
	case enums.TenantTypeSupplier:
		return internalorders.ListRoleSupplier
	case enums.TenantTypeLogistics:
		return internalorders.ListRoleLogistics
	case enums.TenantTypeRegulator:
		return internalorders.ListRoleRegulator
	default:
		return internalorders.ListRoleBuyer
	}
}

type transitionFunc func(svc internalorders.Service, r *http.Request, input internalorders.TransitionInput) (*models.Order, error)

// transitionHandler covers the actions whose only input is an optional reason.
func transitionHandler(svc internalorders.Service, logg *logger.Logger, run transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reasonRequest
		if err := decodeOptionalBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := run(svc, r, internalorders.TransitionInput{
			OrderID: orderID,
			Actor:   actor,
			Reason:  validators.SanitizeString(body.Reason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

func decodeOptionalBody(r *http.Request, dest any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return validators.DecodeJSONBody(r, dest)
}
