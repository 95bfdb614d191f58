package models

import "time"

// Pipeline thresholds. The caps exist to bound third-party API spend and
// per-request runtime, not for correctness.
const (
	// MinConfidence is the lowest score a pairing may have to become a ChainMatch.
	// Name evidence is required to reach it: the contextual signals alone sum to 35.
	MinConfidence = 60

	// DefaultScanLimit is how many recently-seen sold listings a batch scan
	// considers when the caller does not pass a limit.
	DefaultScanLimit = 10

	// MaxScanLimit caps a caller-supplied limit.
	MaxScanLimit = 100

	// MaxListingsPerScan is the hard cap on unprocessed listings a single batch
	// invocation resolves. Each one costs one deed lookup and one person search.
	MaxListingsPerScan = 5

	// RecentSaleWindow is how fresh a sale must be to earn the recentSale signal.
	RecentSaleWindow = 30 * 24 * time.Hour
)
