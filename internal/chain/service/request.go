package service

import (
	"chainlead/internal/chain/models"
)

// Mode selects which pipeline entry a Request runs.
type Mode string

const (
	ModeByListingID Mode = "listing"
	ModeByAddress   Mode = "address"
	ModeBatchScan   Mode = "batch"
)

// Request is a detection request already resolved to exactly one mode. Build
// it with ByListingID, ByAddress or BatchScan; only the fields of its Mode
// are read.
type Request struct {
	Mode      Mode
	ListingID string
	Address   models.Address
	Limit     int
}

// ByListingID detects chains for one stored sold listing.
func ByListingID(id string) Request {
	return Request{Mode: ModeByListingID, ListingID: id}
}

// ByAddress detects chains for a caller-supplied sold address.
func ByAddress(addr models.Address) Request {
	return Request{Mode: ModeByAddress, Address: addr}
}

// BatchScan sweeps up to limit recently sold listings. A non-positive limit
// uses DefaultScanLimit; larger limits are clamped to MaxScanLimit.
func BatchScan(limit int) Request {
	switch {
	case limit <= 0:
		limit = models.DefaultScanLimit
	case limit > models.MaxScanLimit:
		limit = models.MaxScanLimit
	}
	return Request{Mode: ModeBatchScan, Limit: limit}
}

// Result is the outcome of one detection run.
type Result struct {
	Mode Mode
	// Chains holds every qualifying match, highest confidence first.
	Chains []models.ChainMatch
	// ListingsProcessed counts listings resolved in a batch scan.
	ListingsProcessed int
	// ChainsPersisted counts chains newly written; duplicates are excluded.
	ChainsPersisted int
	Message         string
}
