// Package deeds resolves who bought a property from the property-records API.
package deeds

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"chainlead/internal/chain/metrics"
	"chainlead/internal/chain/models"
	"chainlead/internal/chain/providers"
)

const transactionsPath = "/v1/properties/transactions"

// Cache stores resolved buyers by CacheKey. Implementations report a miss as
// (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (*models.BuyerInfo, bool, error)
	Set(ctx context.Context, key string, info models.BuyerInfo) error
}

// Resolver looks up the buyer on the most recent deed for an address.
type Resolver struct {
	client  *providers.Client
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache reuses successful resolutions. Failures are never cached.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New creates a resolver backed by the property-records client.
func New(client *providers.Client, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{client: client, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type transactionsResponse struct {
	Transactions []transaction `json:"transactions"`
}

type transaction struct {
	DocumentType        string   `json:"documentType"`
	SaleDate            string   `json:"saleDate"`
	RecordingDate       string   `json:"recordingDate"`
	SalePrice           *float64 `json:"salePrice"`
	BuyerName           string   `json:"buyerName"`
	BuyerMailingAddress string   `json:"buyerMailingAddress"`
}

// Resolve returns the buyer from the most recent transaction on addr, or nil
// when the lookup fails or the deed names no buyer. A nil result means the
// property cannot be chained; it is not an error for the caller.
func (r *Resolver) Resolve(ctx context.Context, addr models.Address) *models.BuyerInfo {
	key := CacheKey(addr)
	if info := r.fromCache(ctx, key); info != nil {
		return info
	}

	query := url.Values{}
	query.Set("street", addr.Street)
	query.Set("city", addr.City)
	query.Set("state", addr.State)
	query.Set("zip", addr.Zip)

	var resp transactionsResponse
	if err := r.client.GetJSON(ctx, transactionsPath, query, &resp); err != nil {
		r.logger.WarnContext(ctx, "deed lookup failed",
			"address", addr.String(),
			"status_code", providers.StatusCode(err),
			"category", providers.GetCategory(err),
			"error", err,
		)
		return nil
	}

	latest, ok := mostRecent(resp.Transactions)
	if !ok {
		r.logger.InfoContext(ctx, "no transactions on record", "address", addr.String())
		return nil
	}
	info := latest.toBuyerInfo()
	if !info.HasBuyer() {
		r.logger.InfoContext(ctx, "most recent deed has no buyer name", "address", addr.String())
		return nil
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, *info); err != nil {
			r.logger.WarnContext(ctx, "deed cache write failed", "address", addr.String(), "error", err)
		}
	}
	return info
}

func (r *Resolver) fromCache(ctx context.Context, key string) *models.BuyerInfo {
	if r.cache == nil {
		return nil
	}
	info, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.WarnContext(ctx, "deed cache read failed", "key", key, "error", err)
		return nil
	}
	r.metrics.RecordDeedCache(ok)
	if !ok {
		return nil
	}
	return info
}

// mostRecent picks the transaction with the latest sale date, falling back to
// the recording date. Undated transactions rank below dated ones; ties keep
// the provider's order.
func mostRecent(txs []transaction) (transaction, bool) {
	if len(txs) == 0 {
		return transaction{}, false
	}
	best, bestDate := 0, txs[0].effectiveDate()
	for i := 1; i < len(txs); i++ {
		d := txs[i].effectiveDate()
		if d != nil && (bestDate == nil || d.After(*bestDate)) {
			best, bestDate = i, d
		}
	}
	return txs[best], true
}

func (t transaction) effectiveDate() *time.Time {
	if d := ParseDate(t.SaleDate); d != nil {
		return d
	}
	return ParseDate(t.RecordingDate)
}

func (t transaction) toBuyerInfo() *models.BuyerInfo {
	return &models.BuyerInfo{
		BuyerName:      strings.TrimSpace(t.BuyerName),
		MailingAddress: strings.TrimSpace(t.BuyerMailingAddress),
		SaleDate:       ParseDate(t.SaleDate),
		SalePrice:      t.SalePrice,
	}
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "01/02/2006"}

// ParseDate accepts ISO dates, RFC 3339 timestamps and US-style dates. It
// returns nil for empty or unrecognized input.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// CacheKey canonicalizes an address for cache lookups.
func CacheKey(addr models.Address) string {
	return strings.Join(strings.Fields(strings.ToLower(addr.String())), " ")
}
