package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/rxexchange-backend/api/responses"
	"github.com/angelmondragon/rxexchange-backend/api/validators"
	internalorders "github.com/angelmondragon/rxexchange-backend/internal/orders"
	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
)

type shipRequest struct {
	LogisticsTenantID string `json:"logistics_tenant_id" validate:"required,uuid"`
	TrackingNumber    string `json:"tracking_number" validate:"max=128"`
}

type transportRequest struct {
	Status string `json:"status" validate:"required,oneof=shipped in_transit delivered"`
}

func SupplierConfirm(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(svc internalorders.Service, r *http.Request, input internalorders.TransitionInput) (*models.Order, error) {
		return svc.Confirm(r.Context(), input)
	})
}

func SupplierReject(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(svc internalorders.Service, r *http.Request, input internalorders.TransitionInput) (*models.Order, error) {
		return svc.Reject(r.Context(), input)
	})
}

// SupplierCancel withdraws a confirmed or shipped order and returns its stock.
func SupplierCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(svc internalorders.Service, r *http.Request, input internalorders.TransitionInput) (*models.Order, error) {
		return svc.CancelBySupplier(r.Context(), input)
	})
}

// SupplierShip hands a confirmed order to a logistics tenant.
func SupplierShip(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body shipRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logisticsID, err := uuid.Parse(body.LogisticsTenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid logistics_tenant_id"))
			return
		}

		order, err := svc.Ship(r.Context(), internalorders.ShipInput{
			OrderID:           orderID,
			Actor:             actor,
			LogisticsTenantID: logisticsID,
			TrackingNumber:    validators.SanitizeString(body.TrackingNumber, maxTrackingLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

// LogisticsTransport records carrier progress reported by the assigned logistics tenant.
func LogisticsTransport(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body transportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(body.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateTransportStatus(r.Context(), internalorders.TransportInput{
			OrderID: orderID,
			Actor:   actor,
			Status:  status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}
