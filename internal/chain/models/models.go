package models

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"chainlead/internal/chain/names"
	dErrors "chainlead/pkg/domain-errors"
)

// Address is a US street address split into its components.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// String renders the address on one line, e.g. "12 Oak St, Austin, TX 78701".
func (a Address) String() string {
	parts := make([]string, 0, 3)
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	stateZip := strings.TrimSpace(a.State + " " + a.Zip)
	if stateZip != "" {
		parts = append(parts, stateZip)
	}
	return strings.Join(parts, ", ")
}

// Complete reports whether all four components are present.
func (a Address) Complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.Zip != ""
}

// SoldListingRef is a sold listing as read from the listings subsystem.
type SoldListingRef struct {
	ID      string
	Address Address
}

// BuyerInfo is the buyer side of the most recent deed for a property.
// Empty strings and nil pointers mean the records API did not supply the field.
type BuyerInfo struct {
	BuyerName      string
	MailingAddress string
	SaleDate       *time.Time
	SalePrice      *float64
}

// HasBuyer reports whether a buyer name was resolved. Without one the property
// cannot be chained.
func (b *BuyerInfo) HasBuyer() bool {
	return b != nil && strings.TrimSpace(b.BuyerName) != ""
}

// PropertyOwnership is one property the person search associates with an owner.
type PropertyOwnership struct {
	Address         Address
	OwnerName       string
	MailingAddress  string
	PropertyAddress string
	LastSaleDate    *time.Time
}

// ChainMatch pairs a just-sold property with another property its buyer
// appears to still own. Values are fixed at construction.
type ChainMatch struct {
	Sold                Address
	SaleDate            *time.Time
	SalePrice           *float64
	BuyerName           string
	BuyerNameNormalized string
	Owned               Address
	ConfidenceScore     int
	Signals             map[string]bool
}

// NewChainMatch builds a ChainMatch, deriving the normalized buyer name.
// Pairings below MinConfidence are rejected.
func NewChainMatch(sold Address, buyer BuyerInfo, owned Address, score int, signals map[string]bool) (*ChainMatch, error) {
	if score < MinConfidence || score > 100 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("confidence %d outside [%d, 100]", score, MinConfidence))
	}
	if !buyer.HasBuyer() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "buyer name is required")
	}
	if sold.Street == "" || owned.Street == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sold and owned street addresses are required")
	}
	return &ChainMatch{
		Sold:                sold,
		SaleDate:            buyer.SaleDate,
		SalePrice:           buyer.SalePrice,
		BuyerName:           buyer.BuyerName,
		BuyerNameNormalized: names.Normalize(buyer.BuyerName),
		Owned:               owned,
		ConfidenceScore:     score,
		Signals:             maps.Clone(signals),
	}, nil
}

// ChainStatus is the lifecycle state of a persisted chain. Detection only
// writes StatusDetected; downstream reveal/contact workflows move it on.
type ChainStatus string

const (
	StatusDetected  ChainStatus = "detected"
	StatusRevealed  ChainStatus = "revealed"
	StatusContacted ChainStatus = "contacted"
)

// OwnershipChain is the persisted form of a ChainMatch.
type OwnershipChain struct {
	ID            uuid.UUID
	Match         ChainMatch
	Status        ChainStatus
	SoldListingID string
	CreatedAt     time.Time
}

// NewOwnershipChain wraps a match for persistence in the detected state.
func NewOwnershipChain(match ChainMatch, soldListingID string, now time.Time) *OwnershipChain {
	return &OwnershipChain{
		ID:            uuid.New(),
		Match:         match,
		Status:        StatusDetected,
		SoldListingID: soldListingID,
		CreatedAt:     now,
	}
}
