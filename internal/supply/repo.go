package supply

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
)

// Repository reads and writes supply listings inside a caller-owned transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a repository to the given connection or transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a listing without locking it.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SupplyListing, error) {
	var listing models.SupplyListing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// LockByID loads a listing and holds its row lock until the transaction ends.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.SupplyListing, error) {
	var listing models.SupplyListing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

var resolutionOrder = "CASE WHEN status = '" + string(enums.ListingStatusActive) + "' THEN 0 ELSE 1 END, created_at ASC, id ASC"

// LockForTenantDrug locks the listing a (tenant, drug) pair resolves to:
// active listings win over inactive ones, oldest first within a status.
func (r *Repository) LockForTenantDrug(ctx context.Context, tenantID, drugID uuid.UUID) (*models.SupplyListing, error) {
	var listing models.SupplyListing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND drug_id = ?", tenantID, drugID).
		Order(resolutionOrder).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// CompareAndSetQuantity writes the new quantity and status only when the
// stored quantity still equals expected. It reports whether a row changed.
func (r *Repository) CompareAndSetQuantity(ctx context.Context, id uuid.UUID, expected, next int, status enums.ListingStatus, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SupplyListing{}).
		Where("id = ? AND available_quantity = ?", id, expected).
		Updates(map[string]any{
			"available_quantity": next,
			"status":             status,
			"updated_at":         now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
