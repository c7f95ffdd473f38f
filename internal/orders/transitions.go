package orders

import (
	"time"

	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
)

// Party is the side of an order allowed to drive a transition.
type Party string

const (
	PartyBuyer     Party = "buyer"
	PartySupplier  Party = "supplier"
	PartyLogistics Party = "logistics"
	PartySystem    Party = "system"
)

type policyGate int

const (
	gateNone policyGate = iota
	gateSupplierCancel
	gateReceiptFromShipped
)

type transition struct {
	from          enums.OrderStatus
	to            enums.OrderStatus
	party         Party
	releasesStock bool
	gate          policyGate
	event         enums.OutboxEventType
}

// transitionTable is the complete order state machine. Anything not listed is
// rejected with INVALID_TRANSITION.
var transitionTable = []transition{
	{from: enums.OrderStatusPending, to: enums.OrderStatusConfirmed, party: PartySupplier, event: enums.EventOrderConfirmed},
	{from: enums.OrderStatusPending, to: enums.OrderStatusCancelledByPharmacy, party: PartyBuyer, releasesStock: true, event: enums.EventOrderCancelled},
	{from: enums.OrderStatusPending, to: enums.OrderStatusRejectedBySupplier, party: PartySupplier, releasesStock: true, event: enums.EventOrderRejected},
	{from: enums.OrderStatusPending, to: enums.OrderStatusExpiredCancelled, party: PartySystem, releasesStock: true, event: enums.EventOrderExpired},

	{from: enums.OrderStatusConfirmed, to: enums.OrderStatusShipped, party: PartySupplier, event: enums.EventOrderShipped},
	{from: enums.OrderStatusConfirmed, to: enums.OrderStatusCancelledBySupplier, party: PartySupplier, releasesStock: true, gate: gateSupplierCancel, event: enums.EventOrderCancelled},

	{from: enums.OrderStatusShipped, to: enums.OrderStatusInTransit, party: PartyLogistics, event: enums.EventOrderTransportUpdated},
	{from: enums.OrderStatusShipped, to: enums.OrderStatusDelivered, party: PartyLogistics, event: enums.EventOrderDelivered},
	{from: enums.OrderStatusShipped, to: enums.OrderStatusDelivered, party: PartyBuyer, gate: gateReceiptFromShipped, event: enums.EventOrderDelivered},
	{from: enums.OrderStatusShipped, to: enums.OrderStatusCancelledBySupplier, party: PartySupplier, releasesStock: true, gate: gateSupplierCancel, event: enums.EventOrderCancelled},

	{from: enums.OrderStatusInTransit, to: enums.OrderStatusDelivered, party: PartyLogistics, event: enums.EventOrderDelivered},
	{from: enums.OrderStatusInTransit, to: enums.OrderStatusDelivered, party: PartyBuyer, event: enums.EventOrderDelivered},
}

func lookupTransition(from, to enums.OrderStatus, party Party) (transition, bool) {
	for _, candidate := range transitionTable {
		if candidate.from == from && candidate.to == to && candidate.party == party {
			return candidate, true
		}
	}
	return transition{}, false
}

// canTransition reports whether any party may move an order from one status to another.
func canTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitionTable {
		if candidate.from == from && candidate.to == to {
			return true
		}
	}
	return false
}

// stampTransition records the timestamp owned by the target status.
func stampTransition(order *models.Order, to enums.OrderStatus, now time.Time) map[string]any {
	ts := now
	switch to {
	case enums.OrderStatusConfirmed:
		order.ConfirmedAt = &ts
		return map[string]any{"confirmed_at": ts}
	case enums.OrderStatusShipped:
		order.ShippedAt = &ts
		return map[string]any{"shipped_at": ts}
	case enums.OrderStatusInTransit:
		order.InTransitAt = &ts
		return map[string]any{"in_transit_at": ts}
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &ts
		return map[string]any{"delivered_at": ts}
	default:
		if to.IsTerminal() {
			order.CancelledAt = &ts
			return map[string]any{"cancelled_at": ts}
		}
		return map[string]any{}
	}
}
