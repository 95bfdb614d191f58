// Package listings reads sold listings from the listings subsystem's table.
package listings

import (
	"time"

	"chainlead/internal/chain/models"
)

// StatusSold marks a listing whose sale has closed.
const StatusSold = "sold"

// Listing is a listings row as the chain detector sees it.
type Listing struct {
	Ref        models.SoldListingRef
	Status     string
	LastSeenAt time.Time
}
