// Package deedcache stores resolved deed buyers so repeated lookups of the
// same address within the TTL skip the property-records API.
package deedcache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"chainlead/internal/chain/models"
)

// InMemoryCache keeps buyers in process memory with TTL expiration.
type InMemoryCache struct {
	entries *gocache.Cache
}

// NewInMemoryCache creates a cache whose entries live for ttl.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{entries: gocache.New(ttl, 2*ttl)}
}

// Get returns a copy of the cached buyer for key.
func (c *InMemoryCache) Get(_ context.Context, key string) (*models.BuyerInfo, bool, error) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	info := v.(models.BuyerInfo)
	return &info, true, nil
}

// Set stores info under key with the default TTL.
func (c *InMemoryCache) Set(_ context.Context, key string, info models.BuyerInfo) error {
	c.entries.SetDefault(key, info)
	return nil
}
