// Package ownership finds other properties held by a person via the
// person-search API.
package ownership

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"chainlead/internal/chain/models"
	"chainlead/internal/chain/providers"
	"chainlead/internal/chain/providers/deeds"
)

const propertiesPath = "/v1/people/properties"

// Finder lists properties associated with an owner name.
type Finder struct {
	client *providers.Client
	logger *slog.Logger
}

// New creates a finder backed by the person-search client.
func New(client *providers.Client, logger *slog.Logger) *Finder {
	return &Finder{client: client, logger: logger}
}

type propertiesResponse struct {
	Properties []property `json:"properties"`
}

type property struct {
	OwnerName       string       `json:"ownerName"`
	Address         addressParts `json:"address"`
	MailingAddress  string       `json:"mailingAddress"`
	PropertyAddress string       `json:"propertyAddress"`
	LastSaleDate    string       `json:"lastSaleDate"`
}

type addressParts struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Find returns the properties the person search associates with ownerName.
// Candidates whose address contains exclude (case-insensitive) are dropped, so
// passing the street just purchased keeps it out of the results. An empty
// exclude disables the filter. Failures are logged and yield no candidates.
func (f *Finder) Find(ctx context.Context, ownerName, exclude string) []models.PropertyOwnership {
	ownerName = strings.TrimSpace(ownerName)
	if ownerName == "" {
		return nil
	}

	var resp propertiesResponse
	if err := f.client.GetJSON(ctx, propertiesPath, url.Values{"name": {ownerName}}, &resp); err != nil {
		f.logger.WarnContext(ctx, "person property search failed",
			"owner_name", ownerName,
			"status_code", providers.StatusCode(err),
			"category", providers.GetCategory(err),
			"error", err,
		)
		return nil
	}

	exclude = strings.ToLower(strings.TrimSpace(exclude))
	out := make([]models.PropertyOwnership, 0, len(resp.Properties))
	for _, p := range resp.Properties {
		candidate := p.toModel()
		if candidate.Address.Street == "" {
			continue
		}
		if exclude != "" && strings.Contains(strings.ToLower(candidate.Address.String()), exclude) {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func (p property) toModel() models.PropertyOwnership {
	addr := models.Address{
		Street: strings.TrimSpace(p.Address.Street),
		City:   strings.TrimSpace(p.Address.City),
		State:  strings.TrimSpace(p.Address.State),
		Zip:    strings.TrimSpace(p.Address.Zip),
	}
	propertyAddress := strings.TrimSpace(p.PropertyAddress)
	if propertyAddress == "" {
		propertyAddress = addr.String()
	}
	return models.PropertyOwnership{
		Address:         addr,
		OwnerName:       strings.TrimSpace(p.OwnerName),
		MailingAddress:  strings.TrimSpace(p.MailingAddress),
		PropertyAddress: propertyAddress,
		LastSaleDate:    deeds.ParseDate(p.LastSaleDate),
	}
}
