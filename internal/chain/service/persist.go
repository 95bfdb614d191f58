package service

import (
	"context"

	"chainlead/internal/chain/models"
	"chainlead/pkg/requestcontext"
)

// persist writes each match insert-if-absent and publishes an event for every
// new row. A failed write is logged and the remaining matches are still
// written. It returns the number of rows inserted.
func (s *Service) persist(ctx context.Context, found []detected) int {
	now := requestcontext.Now(ctx)
	inserted := 0
	for _, d := range found {
		chain := models.NewOwnershipChain(*d.match, d.listingID, now)
		ok, err := s.chains.InsertIfAbsent(ctx, chain)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to persist ownership chain",
				"sold_address", d.match.Sold.Street,
				"owned_property_address", d.match.Owned.Street,
				"listing_id", d.listingID,
				"error", err,
			)
			s.metrics.IncrementPersisted("failed")
			continue
		}
		if !ok {
			s.metrics.IncrementPersisted("duplicate")
			continue
		}
		inserted++
		s.metrics.IncrementPersisted("inserted")
		s.publish(ctx, chain)
	}
	return inserted
}

func (s *Service) publish(ctx context.Context, chain *models.OwnershipChain) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChainDetected(ctx, chain); err != nil {
		s.logger.WarnContext(ctx, "failed to publish chain detected event",
			"chain_id", chain.ID.String(), "error", err)
	}
}
