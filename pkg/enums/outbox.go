package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateSupplyListing OutboxAggregateType = "supply_listing"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateSupplyListing,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names an order lifecycle event.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderConfirmed        OutboxEventType = "order_confirmed"
	EventOrderRejected         OutboxEventType = "order_rejected"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventOrderShipped          OutboxEventType = "order_shipped"
	EventOrderTransportUpdated OutboxEventType = "order_transport_updated"
	EventOrderDelivered        OutboxEventType = "order_delivered"
	EventOrderExpired          OutboxEventType = "order_expired"
	EventSupplyListingAdjusted OutboxEventType = "supply_listing_adjusted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderConfirmed,
	EventOrderRejected,
	EventOrderCancelled,
	EventOrderShipped,
	EventOrderTransportUpdated,
	EventOrderDelivered,
	EventOrderExpired,
	EventSupplyListingAdjusted,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
