// Package service runs the ownership-chain detection pipeline: resolve the
// buyer of a sold property, find other properties they own, score each
// pairing and persist the qualifying chains.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"chainlead/internal/chain/metrics"
	"chainlead/internal/chain/models"
	"chainlead/internal/chain/scoring"
	"chainlead/internal/platform/tracing"
	dErrors "chainlead/pkg/domain-errors"
	"chainlead/pkg/platform/sentinel"
	"chainlead/pkg/requestcontext"
)

type ListingStore interface {
	FindByID(ctx context.Context, id string) (*models.SoldListingRef, error)
	ListRecentlySold(ctx context.Context, limit, offset int) ([]models.SoldListingRef, error)
}

type ChainStore interface {
	InsertIfAbsent(ctx context.Context, chain *models.OwnershipChain) (bool, error)
	ListingIDsWithChains(ctx context.Context, ids []string) (map[string]bool, error)
}

// BuyerResolver returns nil when a property's buyer cannot be determined.
type BuyerResolver interface {
	Resolve(ctx context.Context, addr models.Address) *models.BuyerInfo
}

// PropertyFinder returns no candidates, rather than an error, on lookup failure.
type PropertyFinder interface {
	Find(ctx context.Context, ownerName, exclude string) []models.PropertyOwnership
}

type EventPublisher interface {
	PublishChainDetected(ctx context.Context, chain *models.OwnershipChain) error
}

// Service orchestrates chain detection across the three request modes.
type Service struct {
	listings  ListingStore
	chains    ChainStore
	resolver  BuyerResolver
	finder    PropertyFinder
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(listings ListingStore, chains ChainStore, resolver BuyerResolver, finder PropertyFinder, opts ...Option) *Service {
	s := &Service{
		listings: listings,
		chains:   chains,
		resolver: resolver,
		finder:   finder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// detected is a qualifying match and the listing it came from, if any.
type detected struct {
	match     *models.ChainMatch
	listingID string
}

// Detect runs req. Only a missing listing or a storage failure outside
// persistence is returned as an error; upstream lookup failures shrink the
// result instead.
func (s *Service) Detect(ctx context.Context, req Request) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "chains.Detect", attribute.String("mode", string(req.Mode)))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		s.metrics.ObserveRun(string(req.Mode), outcome, time.Since(start))
		span.End()
	}()

	// Every recency check in a run uses the same instant.
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

	switch req.Mode {
	case ModeByListingID:
		return s.detectByListing(ctx, req.ListingID)
	case ModeByAddress:
		found := s.detectForProperty(ctx, req.Address, "")
		return s.finish(ctx, ModeByAddress, found, 0), nil
	case ModeBatchScan:
		return s.batchScan(ctx, req.Limit)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown detection mode %q", req.Mode))
	}
}

func (s *Service) detectByListing(ctx context.Context, id string) (*Result, error) {
	ref, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sold listing not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sold listing")
	}
	found := s.detectForProperty(ctx, ref.Address, ref.ID)
	return s.finish(ctx, ModeByListingID, found, 0), nil
}

// batchScan considers up to limit recently sold listings, skips those that
// already have a chain and resolves at most MaxListingsPerScan of the rest,
// one at a time.
func (s *Service) batchScan(ctx context.Context, limit int) (*Result, error) {
	refs, err := s.listings.ListRecentlySold(ctx, limit, 0)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sold listings")
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	processed, err := s.chains.ListingIDsWithChains(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load processed listings")
	}

	pending := make([]models.SoldListingRef, 0, models.MaxListingsPerScan)
	for _, r := range refs {
		if processed[r.ID] {
			continue
		}
		pending = append(pending, r)
		if len(pending) == models.MaxListingsPerScan {
			break
		}
	}
	s.logger.InfoContext(ctx, "batch scan selected listings",
		"considered", len(refs),
		"already_processed", len(processed),
		"selected", len(pending),
	)

	var found []detected
	listingsProcessed := 0
	for _, ref := range pending {
		if err := ctx.Err(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "batch scan interrupted")
		}
		found = append(found, s.detectForProperty(ctx, ref.Address, ref.ID)...)
		listingsProcessed++
	}
	return s.finish(ctx, ModeBatchScan, found, listingsProcessed), nil
}

// detectForProperty runs resolve, find and score for one sold property.
func (s *Service) detectForProperty(ctx context.Context, sold models.Address, listingID string) []detected {
	ctx, span := tracing.StartSpan(ctx, "chains.detectForProperty", attribute.String("listing_id", listingID))
	defer span.End()

	buyer := s.resolver.Resolve(ctx, sold)
	if !buyer.HasBuyer() {
		s.logger.InfoContext(ctx, "skipping property without resolvable buyer",
			"address", sold.String(), "listing_id", listingID)
		return nil
	}

	candidates := s.finder.Find(ctx, buyer.BuyerName, sold.Street)
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	now := requestcontext.Now(ctx)
	var out []detected
	for _, c := range candidates {
		result := scoring.Score(scoring.Input{
			BuyerName:       buyer.BuyerName,
			OwnerName:       c.OwnerName,
			MailingMismatch: mailingMismatch(c),
			SameState:       sameState(c.Address.State, sold.State),
			RecentSale:      recentSale(buyer.SaleDate, now),
		})
		if result.Score < models.MinConfidence {
			continue
		}
		match, err := models.NewChainMatch(sold, *buyer, c.Address, result.Score, result.Signals)
		if err != nil {
			s.logger.WarnContext(ctx, "discarding invalid chain match",
				"address", sold.String(), "owned_address", c.Address.String(), "error", err)
			continue
		}
		out = append(out, detected{match: match, listingID: listingID})
	}
	return out
}

// finish orders and persists the matches of a run. Every qualifying match is
// reported; only the best match per pair is written.
func (s *Service) finish(ctx context.Context, mode Mode, found []detected, listingsProcessed int) *Result {
	slices.SortStableFunc(found, func(a, b detected) int {
		return cmp.Compare(b.match.ConfidenceScore, a.match.ConfidenceScore)
	})
	s.metrics.AddChainsDetected(len(found))

	persisted := s.persist(ctx, dedupePairs(found))

	chains := make([]models.ChainMatch, len(found))
	for i, d := range found {
		chains[i] = *d.match
	}
	return &Result{
		Mode:              mode,
		Chains:            chains,
		ListingsProcessed: listingsProcessed,
		ChainsPersisted:   persisted,
		Message:           message(mode, len(chains), listingsProcessed),
	}
}

// dedupePairs returns the first match per (sold, owned) street pair, leaving
// found untouched. Input must already be sorted so the first is the highest
// scoring.
func dedupePairs(found []detected) []detected {
	seen := make(map[[2]string]bool, len(found))
	out := make([]detected, 0, len(found))
	for _, d := range found {
		key := [2]string{d.match.Sold.Street, d.match.Owned.Street}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// mailingMismatch reports whether the owner's mailing address differs from the
// property's own address. Addresses are compared verbatim, so an absent
// mailing address counts as a mismatch.
func mailingMismatch(p models.PropertyOwnership) bool {
	return p.MailingAddress != p.PropertyAddress
}

func sameState(owned, sold string) bool {
	owned, sold = strings.TrimSpace(owned), strings.TrimSpace(sold)
	return sold != "" && strings.EqualFold(owned, sold)
}

func recentSale(saleDate *time.Time, now time.Time) bool {
	return saleDate != nil && now.Sub(*saleDate) < models.RecentSaleWindow
}

func message(mode Mode, chains, listingsProcessed int) string {
	switch {
	case mode == ModeBatchScan && listingsProcessed == 0:
		return "No unprocessed sold listings to scan"
	case mode == ModeBatchScan:
		return fmt.Sprintf("Scanned %d listing(s), detected %d ownership chain(s)", listingsProcessed, chains)
	case chains == 0:
		return "No ownership chains detected"
	default:
		return fmt.Sprintf("Detected %d ownership chain(s)", chains)
	}
}
