package enums

import "fmt"

// OrderStatus tracks the lifecycle of a marketplace order.
type OrderStatus string

const (
	OrderStatusPending             OrderStatus = "pending"
	OrderStatusConfirmed           OrderStatus = "confirmed"
	OrderStatusShipped             OrderStatus = "shipped"
	OrderStatusInTransit           OrderStatus = "in_transit"
	OrderStatusDelivered           OrderStatus = "delivered"
	OrderStatusCancelledByPharmacy OrderStatus = "cancelled_by_pharmacy"
	OrderStatusRejectedBySupplier  OrderStatus = "rejected_by_supplier"
	OrderStatusExpiredCancelled    OrderStatus = "expired_cancelled"
	OrderStatusCancelledBySupplier OrderStatus = "cancelled_by_supplier"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCancelledByPharmacy,
	OrderStatusRejectedBySupplier,
	OrderStatusExpiredCancelled,
	OrderStatusCancelledBySupplier,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered,
		OrderStatusCancelledByPharmacy,
		OrderStatusRejectedBySupplier,
		OrderStatusExpiredCancelled,
		OrderStatusCancelledBySupplier:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
