package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rxexchange-backend/internal/supply"
	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	"github.com/angelmondragon/rxexchange-backend/pkg/outbox"
	"github.com/angelmondragon/rxexchange-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	ListForTenant(ctx context.Context, filter tenantListFilter) ([]models.Order, error)
}

// tenantListFilter scopes a list query. An empty column lists all tenants.
type tenantListFilter struct {
	column   string
	tenantID uuid.UUID
	status   *enums.OrderStatus
	cursor   *pagination.Cursor
	limit    int
}

// SupplyLedger is the quantity authority orders reserve against.
type SupplyLedger interface {
	Adjust(ctx context.Context, tx *gorm.DB, input supply.AdjustInput) (*models.SupplyListing, error)
	FindListing(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SupplyListing, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
