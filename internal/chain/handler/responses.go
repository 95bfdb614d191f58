package handler

import (
	"time"

	"chainlead/internal/chain/models"
	"chainlead/internal/chain/service"
)

// DetectResponse is the success body of POST /chains/detect.
type DetectResponse struct {
	Success         bool                 `json:"success"`
	ChainsDetected  int                  `json:"chainsDetected"`
	Chains          []ChainMatchResponse `json:"chains"`
	Message         string               `json:"message"`
	ChainsPersisted int                  `json:"chainsPersisted"`
	// Batch scans only
	ListingsProcessed *int `json:"listingsProcessed,omitempty"`
}

// ChainMatchResponse is one detected chain.
type ChainMatchResponse struct {
	SoldAddress          string          `json:"soldAddress"`
	SoldCity             string          `json:"soldCity"`
	SoldState            string          `json:"soldState"`
	SoldZip              string          `json:"soldZip"`
	SaleDate             *string         `json:"saleDate"`
	SalePrice            *float64        `json:"salePrice"`
	BuyerName            string          `json:"buyerName"`
	BuyerNameNormalized  string          `json:"buyerNameNormalized"`
	OwnedPropertyAddress string          `json:"ownedPropertyAddress"`
	OwnedPropertyCity    string          `json:"ownedPropertyCity"`
	OwnedPropertyState   string          `json:"ownedPropertyState"`
	OwnedPropertyZip     string          `json:"ownedPropertyZip"`
	ConfidenceScore      int             `json:"confidenceScore"`
	MatchSignals         map[string]bool `json:"matchSignals"`
}

// FromResult converts a service result to the response body.
func FromResult(r *service.Result) DetectResponse {
	chains := make([]ChainMatchResponse, len(r.Chains))
	for i, m := range r.Chains {
		chains[i] = fromMatch(m)
	}
	resp := DetectResponse{
		Success:         true,
		ChainsDetected:  len(chains),
		Chains:          chains,
		Message:         r.Message,
		ChainsPersisted: r.ChainsPersisted,
	}
	if r.Mode == service.ModeBatchScan {
		n := r.ListingsProcessed
		resp.ListingsProcessed = &n
	}
	return resp
}

func fromMatch(m models.ChainMatch) ChainMatchResponse {
	var saleDate *string
	if m.SaleDate != nil {
		d := m.SaleDate.Format(time.DateOnly)
		saleDate = &d
	}
	signals := m.Signals
	if signals == nil {
		signals = map[string]bool{}
	}
	return ChainMatchResponse{
		SoldAddress:          m.Sold.Street,
		SoldCity:             m.Sold.City,
		SoldState:            m.Sold.State,
		SoldZip:              m.Sold.Zip,
		SaleDate:             saleDate,
		SalePrice:            m.SalePrice,
		BuyerName:            m.BuyerName,
		BuyerNameNormalized:  m.BuyerNameNormalized,
		OwnedPropertyAddress: m.Owned.Street,
		OwnedPropertyCity:    m.Owned.City,
		OwnedPropertyState:   m.Owned.State,
		OwnedPropertyZip:     m.Owned.Zip,
		ConfidenceScore:      m.ConfidenceScore,
		MatchSignals:         signals,
	}
}
