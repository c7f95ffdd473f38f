package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	"github.com/angelmondragon/rxexchange-backend/pkg/pagination"
)

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID     uuid.UUID
	TenantID   *uuid.UUID
	TenantType enums.TenantType
	Role       string
}

// CreateOrderInput places a pharmacy order against one supply listing.
type CreateOrderInput struct {
	Actor           Actor
	SupplyListingID uuid.UUID
	Quantity        int
	Notes           *string
}

// TransitionInput drives the simple actor transitions (confirm, reject, cancel, receipt).
type TransitionInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Reason  string
}

// ShipInput hands a confirmed order to a logistics tenant.
type ShipInput struct {
	OrderID           uuid.UUID
	Actor             Actor
	LogisticsTenantID uuid.UUID
	TrackingNumber    string
}

// TransportInput reports carrier progress on a shipped order.
type TransportInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Status  enums.OrderStatus
}

// ExpireInput cancels one stale pending order on behalf of the system.
// A non-zero Cutoff additionally requires the order to have been created at
// or before it.
type ExpireInput struct {
	OrderID uuid.UUID
	Now     time.Time
	Cutoff  time.Time
	Reason  string
}

// ListRole selects which side of the order the caller lists from.
type ListRole string

const (
	ListRoleBuyer     ListRole = "buyer"
	ListRoleSupplier  ListRole = "supplier"
	ListRoleLogistics ListRole = "logistics"
	// ListRoleRegulator lists every order; only regulator tenants may use it.
	ListRoleRegulator ListRole = "regulator"
)

// ListOrdersInput lists orders visible to the actor's tenant.
type ListOrdersInput struct {
	Actor  Actor
	Role   ListRole
	Status *enums.OrderStatus
	Params pagination.Params
}

// OrderList wraps one page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// OrderView is the API projection of an order.
type OrderView struct {
	ID                uuid.UUID         `json:"id"`
	OrderNumber       string            `json:"order_number"`
	Status            enums.OrderStatus `json:"status"`
	BuyerTenantID     uuid.UUID         `json:"buyer_tenant_id"`
	SupplierTenantID  uuid.UUID         `json:"supplier_tenant_id"`
	LogisticsTenantID *uuid.UUID        `json:"logistics_tenant_id,omitempty"`
	TrackingNumber    *string           `json:"tracking_number,omitempty"`
	CancelReason      *string           `json:"cancel_reason,omitempty"`
	Notes             *string           `json:"notes,omitempty"`
	Total             decimal.Decimal   `json:"total"`
	Items             []OrderItemView   `json:"items"`
	CreatedAt         time.Time         `json:"created_at"`
	ConfirmedAt       *time.Time        `json:"confirmed_at,omitempty"`
	ShippedAt         *time.Time        `json:"shipped_at,omitempty"`
	InTransitAt       *time.Time        `json:"in_transit_at,omitempty"`
	DeliveredAt       *time.Time        `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty"`
}

// OrderItemView is the API projection of an order item.
type OrderItemView struct {
	ID              uuid.UUID       `json:"id"`
	SupplyListingID *uuid.UUID      `json:"supply_listing_id,omitempty"`
	DrugID          uuid.UUID       `json:"drug_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// NewOrderView projects a persisted order.
func NewOrderView(order *models.Order) OrderView {
	view := OrderView{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		BuyerTenantID:     order.BuyerTenantID,
		SupplierTenantID:  order.SupplierTenantID,
		LogisticsTenantID: order.LogisticsTenantID,
		TrackingNumber:    order.TrackingNumber,
		CancelReason:      order.CancelReason,
		Notes:             order.Notes,
		Total:             decimal.Zero,
		Items:             make([]OrderItemView, 0, len(order.Items)),
		CreatedAt:         order.CreatedAt,
		ConfirmedAt:       order.ConfirmedAt,
		ShippedAt:         order.ShippedAt,
		InTransitAt:       order.InTransitAt,
		DeliveredAt:       order.DeliveredAt,
		CancelledAt:       order.CancelledAt,
	}
	for _, item := range order.Items {
		line := item.LineTotal()
		view.Total = view.Total.Add(line)
		view.Items = append(view.Items, OrderItemView{
			ID:              item.ID,
			SupplyListingID: item.SupplyListingID,
			DrugID:          item.DrugID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			LineTotal:       line,
		})
	}
	return view
}

// OrderCreatedEvent is the outbox payload for a new order.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	OrderNumber      string          `json:"order_number"`
	BuyerTenantID    uuid.UUID       `json:"buyer_tenant_id"`
	SupplierTenantID uuid.UUID       `json:"supplier_tenant_id"`
	SupplyListingID  uuid.UUID       `json:"supply_listing_id"`
	DrugID           uuid.UUID       `json:"drug_id"`
	Quantity         int             `json:"quantity"`
	Total            decimal.Decimal `json:"total"`
}

// OrderStatusChangedEvent is the outbox payload for every later transition.
type OrderStatusChangedEvent struct {
	OrderID          uuid.UUID         `json:"order_id"`
	OrderNumber      string            `json:"order_number"`
	BuyerTenantID    uuid.UUID         `json:"buyer_tenant_id"`
	SupplierTenantID uuid.UUID         `json:"supplier_tenant_id"`
	From             enums.OrderStatus `json:"from"`
	To               enums.OrderStatus `json:"to"`
	Reason           string            `json:"reason,omitempty"`
	StockReleased    bool              `json:"stock_released"`
}
