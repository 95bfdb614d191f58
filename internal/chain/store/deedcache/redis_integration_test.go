//go:build integration

package deedcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chainlead/internal/chain/models"
	"chainlead/internal/chain/store/deedcache"
	"chainlead/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *deedcache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = deedcache.NewRedisCache(s.redis.Client, 5*time.Minute)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	saleDate := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	price := 455000.5
	info := models.BuyerInfo{
		BuyerName:      "Jane Doe",
		MailingAddress: "9 Elm St, Dallas, TX 75201",
		SaleDate:       &saleDate,
		SalePrice:      &price,
	}

	s.Require().NoError(s.cache.Set(ctx, "12 oak st, austin, tx 78701", info))

	found, ok, err := s.cache.Get(ctx, "12 oak st, austin, tx 78701")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(info.BuyerName, found.BuyerName)
	s.Equal(info.MailingAddress, found.MailingAddress)
	s.True(saleDate.Equal(*found.SaleDate))
	s.Equal(price, *found.SalePrice)
}

func (s *RedisCacheSuite) TestMissIsNotAnError() {
	found, ok, err := s.cache.Get(context.Background(), "missing")
	s.NoError(err)
	s.False(ok)
	s.Nil(found)
}

func (s *RedisCacheSuite) TestTTLEviction() {
	ctx := context.Background()
	short := deedcache.NewRedisCache(s.redis.Client, 50*time.Millisecond)
	s.Require().NoError(short.Set(ctx, "ttl", models.BuyerInfo{BuyerName: "Jane Doe"}))

	time.Sleep(120 * time.Millisecond)

	_, ok, err := short.Get(ctx, "ttl")
	s.NoError(err)
	s.False(ok)
}
