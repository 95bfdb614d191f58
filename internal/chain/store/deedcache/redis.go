package deedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chainlead/internal/chain/models"
)

const keyPrefix = "chainlead:deed:"

// RedisCache shares resolved buyers across instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache whose entries live for ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type cachedBuyer struct {
	BuyerName      string     `json:"buyer_name"`
	MailingAddress string     `json:"mailing_address,omitempty"`
	SaleDate       *time.Time `json:"sale_date,omitempty"`
	SalePrice      *float64   `json:"sale_price,omitempty"`
}

// Get returns the cached buyer for key. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (*models.BuyerInfo, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get deed cache: %w", err)
	}
	var cb cachedBuyer
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, false, fmt.Errorf("decode deed cache: %w", err)
	}
	return &models.BuyerInfo{
		BuyerName:      cb.BuyerName,
		MailingAddress: cb.MailingAddress,
		SaleDate:       cb.SaleDate,
		SalePrice:      cb.SalePrice,
	}, true, nil
}

// Set stores info under key with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, info models.BuyerInfo) error {
	raw, err := json.Marshal(cachedBuyer{
		BuyerName:      info.BuyerName,
		MailingAddress: info.MailingAddress,
		SaleDate:       info.SaleDate,
		SalePrice:      info.SalePrice,
	})
	if err != nil {
		return fmt.Errorf("encode deed cache: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set deed cache: %w", err)
	}
	return nil
}
