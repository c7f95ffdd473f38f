package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
)

// SupplyListing is a supplier's offer of a quantity of one drug at a unit price.
type SupplyListing struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	DrugID            uuid.UUID           `gorm:"column:drug_id;type:uuid;not null"`
	AvailableQuantity int                 `gorm:"column:available_quantity;not null;default:0"`
	UnitPrice         decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	MinOrderQuantity  int                 `gorm:"column:min_order_quantity;not null;default:1"`
	ValidUntil        *time.Time          `gorm:"column:valid_until"`
	Status            enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'active'"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpiredAt reports whether valid_until falls on a day before now. A listing
// stays orderable for the whole of its valid_until date.
func (l SupplyListing) IsExpiredAt(now time.Time) bool {
	if l.ValidUntil == nil {
		return false
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	until := l.ValidUntil.UTC()
	return time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, time.UTC).Before(today)
}
