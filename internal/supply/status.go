package supply

import "github.com/angelmondragon/rxexchange-backend/pkg/enums"

// NextListingStatus derives the status a listing must hold after its quantity
// moves from oldQty to newQty. Reaching zero always deactivates and leaving
// zero always reactivates; otherwise the current status (including a manual
// deactivation) is kept.
func NextListingStatus(oldQty, newQty int, current enums.ListingStatus) enums.ListingStatus {
	switch {
	case newQty <= 0:
		return enums.ListingStatusInactive
	case oldQty <= 0:
		return enums.ListingStatusActive
	default:
		return current
	}
}
