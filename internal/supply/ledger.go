package supply

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	"github.com/angelmondragon/rxexchange-backend/pkg/metrics"
)

// AdjustInput describes one signed quantity change against a supplier's listing.
type AdjustInput struct {
	TenantID uuid.UUID
	DrugID   uuid.UUID
	// ListingID pins the adjustment to a specific listing. When nil the
	// listing is resolved from (TenantID, DrugID).
	ListingID   *uuid.UUID
	Delta       int
	Reason      string
	OperationID string
	// Guard, when set, runs against the locked row before any write. A
	// non-nil error aborts the adjustment unchanged.
	Guard func(listing *models.SupplyListing) error
}

// Ledger is the only writer of supply_listings.available_quantity.
type Ledger struct {
	logg    *logger.Logger
	metrics *metrics.SupplyLedgerMetrics
	now     func() time.Time
}

// NewLedger constructs a ledger. Both collaborators are optional.
func NewLedger(logg *logger.Logger, m *metrics.SupplyLedgerMetrics) *Ledger {
	return &Ledger{
		logg:    logg,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FindListing reads a listing inside tx without taking a lock.
func (l *Ledger) FindListing(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SupplyListing, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for supply lookup")
	}
	listing, err := NewRepository(tx).FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supply listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supply listing")
	}
	return listing, nil
}

// Adjust applies input.Delta to the resolved listing within tx and returns the
// updated row. The write is rejected when it would leave a negative quantity.
func (l *Ledger) Adjust(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.SupplyListing, error) {
	listing, err := l.adjust(ctx, tx, input)
	if err != nil {
		l.metrics.IncOutcome(outcomeFor(err))
		return nil, err
	}
	l.metrics.IncOutcome(metrics.LedgerOutcomeApplied)
	l.metrics.AddUnits(input.Delta)
	return listing, nil
}

func (l *Ledger) adjust(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.SupplyListing, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for supply adjustment")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	if input.TenantID == uuid.Nil || input.DrugID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and drug are required")
	}

	repo := NewRepository(tx)
	listing, err := l.resolve(ctx, repo, input)
	if err != nil {
		return nil, err
	}

	if input.Guard != nil {
		if err := input.Guard(listing); err != nil {
			return nil, err
		}
	}

	oldQty := listing.AvailableQuantity
	newQty := oldQty + input.Delta
	if newQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"listingId": listing.ID.String(),
				"available": oldQty,
				"requested": -input.Delta,
			})
	}

	oldStatus := listing.Status
	newStatus := NextListingStatus(oldQty, newQty, oldStatus)
	now := l.now()

	applied, err := repo.CompareAndSetQuantity(ctx, listing.ID, oldQty, newQty, newStatus, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supply listing")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "supply listing changed concurrently")
	}

	listing.AvailableQuantity = newQty
	listing.Status = newStatus
	listing.UpdatedAt = now

	l.audit(ctx, listing.ID, input, oldQty, newQty, string(oldStatus), string(newStatus))
	return listing, nil
}

func (l *Ledger) resolve(ctx context.Context, repo *Repository, input AdjustInput) (*models.SupplyListing, error) {
	if input.ListingID != nil {
		listing, err := repo.LockByID(ctx, *input.ListingID)
		if err != nil {
			if isNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supply listing not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock supply listing")
		}
		if listing.TenantID != input.TenantID || listing.DrugID != input.DrugID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supply listing does not belong to tenant and drug")
		}
		return listing, nil
	}

	listing, err := repo.LockForTenantDrug(ctx, input.TenantID, input.DrugID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no supply listing for tenant and drug")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock supply listing")
	}
	return listing, nil
}

func (l *Ledger) audit(ctx context.Context, listingID uuid.UUID, input AdjustInput, oldQty, newQty int, oldStatus, newStatus string) {
	if l.logg == nil {
		return
	}
	ctx = l.logg.WithFields(ctx, map[string]any{
		"event":        "supply.adjust",
		"listing_id":   listingID.String(),
		"tenant_id":    input.TenantID.String(),
		"drug_id":      input.DrugID.String(),
		"operation_id": input.OperationID,
		"reason":       input.Reason,
		"delta":        input.Delta,
		"old_quantity": oldQty,
		"new_quantity": newQty,
		"old_status":   oldStatus,
		"new_status":   newStatus,
	})
	l.logg.Info(ctx, "supply listing adjusted")
}

func outcomeFor(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeInsufficientStock:
		return metrics.LedgerOutcomeInsufficient
	case pkgerrors.CodeConflict:
		return metrics.LedgerOutcomeConflict
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeListingUnavailable,
		pkgerrors.CodeSelfDealing, pkgerrors.CodeQuantityTooSmall:
		return metrics.LedgerOutcomeRejected
	default:
		return metrics.LedgerOutcomeError
	}
}
