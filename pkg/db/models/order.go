package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
)

// Order is a purchase placed by a pharmacy tenant against one supplier tenant.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string            `gorm:"column:order_number;not null;uniqueIndex"`
	BuyerTenantID     uuid.UUID         `gorm:"column:buyer_tenant_id;type:uuid;not null"`
	SupplierTenantID  uuid.UUID         `gorm:"column:supplier_tenant_id;type:uuid;not null"`
	LogisticsTenantID *uuid.UUID        `gorm:"column:logistics_tenant_id;type:uuid"`
	Status            enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	CancelReason      *string           `gorm:"column:cancel_reason"`
	TrackingNumber    *string           `gorm:"column:tracking_number"`
	Notes             *string           `gorm:"column:notes"`
	CreatedByUserID   uuid.UUID         `gorm:"column:created_by_user_id;type:uuid;not null"`
	ConfirmedAt       *time.Time        `gorm:"column:confirmed_at"`
	ShippedAt         *time.Time        `gorm:"column:shipped_at"`
	InTransitAt       *time.Time        `gorm:"column:in_transit_at"`
	DeliveredAt       *time.Time        `gorm:"column:delivered_at"`
	CancelledAt       *time.Time        `gorm:"column:cancelled_at"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	CreatedAt         time.Time         `gorm:"column:created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at"`
}
