// Package chains persists detected ownership chains with insert-if-absent
// semantics on the (sold address, owned property address) pair.
package chains

import (
	"context"
	"fmt"
	"sync"

	"chainlead/internal/chain/models"
	"chainlead/pkg/platform/sentinel"
)

type pairKey struct {
	sold  string
	owned string
}

func keyOf(c *models.OwnershipChain) pairKey {
	return pairKey{sold: c.Match.Sold.Street, owned: c.Match.Owned.Street}
}

// InMemory is a chain store for tests and local runs.
type InMemory struct {
	mu     sync.Mutex
	chains map[pairKey]models.OwnershipChain
}

// NewInMemory creates an empty chain store.
func NewInMemory() *InMemory {
	return &InMemory{chains: make(map[pairKey]models.OwnershipChain)}
}

// InsertIfAbsent stores chain unless its pair exists. It reports whether a row was written.
func (s *InMemory) InsertIfAbsent(_ context.Context, chain *models.OwnershipChain) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := keyOf(chain)
	if _, exists := s.chains[key]; exists {
		return false, nil
	}
	s.chains[key] = *chain
	return true, nil
}

// ListingIDsWithChains returns the subset of ids that already have a chain.
func (s *InMemory) ListingIDsWithChains(_ context.Context, ids []string) (map[string]bool, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool)
	for _, c := range s.chains {
		if c.SoldListingID != "" && want[c.SoldListingID] {
			out[c.SoldListingID] = true
		}
	}
	return out, nil
}

// FindByPair returns the chain for a pair.
func (s *InMemory) FindByPair(_ context.Context, soldAddress, ownedAddress string) (*models.OwnershipChain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chains[pairKey{sold: soldAddress, owned: ownedAddress}]
	if !ok {
		return nil, fmt.Errorf("chain %q -> %q: %w", soldAddress, ownedAddress, sentinel.ErrNotFound)
	}
	return &c, nil
}

// UpdateStatus moves a chain to status. Downstream reveal and contact
// workflows use it; detection never does.
func (s *InMemory) UpdateStatus(_ context.Context, soldAddress, ownedAddress string, status models.ChainStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{sold: soldAddress, owned: ownedAddress}
	c, ok := s.chains[key]
	if !ok {
		return fmt.Errorf("chain %q -> %q: %w", soldAddress, ownedAddress, sentinel.ErrNotFound)
	}
	c.Status = status
	s.chains[key] = c
	return nil
}

// Len reports how many chains are stored.
func (s *InMemory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chains)
}
