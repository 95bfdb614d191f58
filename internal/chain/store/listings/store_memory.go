package listings

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"chainlead/internal/chain/models"
	"chainlead/pkg/platform/sentinel"
)

// InMemory is a listings store for tests and local runs.
type InMemory struct {
	mu       sync.RWMutex
	listings map[string]Listing
}

// NewInMemory creates an empty listings store.
func NewInMemory() *InMemory {
	return &InMemory{listings: make(map[string]Listing)}
}

// Save inserts or replaces a listing by ID.
func (s *InMemory) Save(_ context.Context, l Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.Ref.ID] = l
	return nil
}

// FindByID returns the listing with id regardless of status.
func (s *InMemory) FindByID(_ context.Context, id string) (*models.SoldListingRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, sentinel.ErrNotFound)
	}
	ref := l.Ref
	return &ref, nil
}

// ListRecentlySold returns sold listings, most recently seen first.
func (s *InMemory) ListRecentlySold(_ context.Context, limit, offset int) ([]models.SoldListingRef, error) {
	s.mu.RLock()
	sold := make([]Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if l.Status == StatusSold {
			sold = append(sold, l)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(sold, func(a, b Listing) int {
		if c := b.LastSeenAt.Compare(a.LastSeenAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Ref.ID, b.Ref.ID)
	})

	if offset >= len(sold) || limit <= 0 {
		return []models.SoldListingRef{}, nil
	}
	sold = sold[offset:min(len(sold), offset+limit)]
	out := make([]models.SoldListingRef, len(sold))
	for i, l := range sold {
		out[i] = l.Ref
	}
	return out, nil
}
