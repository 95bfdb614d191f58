package deeds

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainlead/internal/chain/models"
	"chainlead/internal/chain/providers"
	"chainlead/internal/platform/config"
)

var soldAddress = models.Address{Street: "12 Oak St", City: "Austin", State: "TX", Zip: "78701"}

type mapCache struct {
	entries map[string]models.BuyerInfo
	getErr  error
}

func (c *mapCache) Get(_ context.Context, key string) (*models.BuyerInfo, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	info, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &info, true, nil
}

func (c *mapCache) Set(_ context.Context, key string, info models.BuyerInfo) error {
	c.entries[key] = info
	return nil
}

func newResolver(t *testing.T, logs io.Writer, h http.HandlerFunc, opts ...Option) *Resolver {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := providers.NewClient(providers.PropertyRecords, config.ProviderConfig{BaseURL: srv.URL, Timeout: time.Second})
	return New(client, slog.New(slog.NewTextHandler(logs, nil)), opts...)
}

func TestResolve(t *testing.T) {
	t.Run("picks the most recent transaction", func(t *testing.T) {
		r := newResolver(t, io.Discard, func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, transactionsPath, req.URL.Path)
			assert.Equal(t, "12 Oak St", req.URL.Query().Get("street"))
			assert.Equal(t, "78701", req.URL.Query().Get("zip"))
			_, _ = w.Write([]byte(`{"transactions":[
				{"saleDate":"2019-03-01","salePrice":210000,"buyerName":"Old Owner"},
				{"saleDate":"2026-09-20","salePrice":455000.5,"buyerName":" Jane Doe ","buyerMailingAddress":"9 Elm St, Dallas, TX"},
				{"recordingDate":"2024-01-05","buyerName":"Middle Owner"}
			]}`))
		})

		info := r.Resolve(context.Background(), soldAddress)
		require.NotNil(t, info)
		assert.Equal(t, "Jane Doe", info.BuyerName)
		assert.Equal(t, "9 Elm St, Dallas, TX", info.MailingAddress)
		require.NotNil(t, info.SaleDate)
		assert.Equal(t, time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC), *info.SaleDate)
		require.NotNil(t, info.SalePrice)
		assert.InDelta(t, 455000.5, *info.SalePrice, 0.001)
	})

	t.Run("latest deed without buyer cannot be chained", func(t *testing.T) {
		r := newResolver(t, io.Discard, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"transactions":[
				{"saleDate":"2019-03-01","buyerName":"Old Owner"},
				{"saleDate":"2026-09-20","buyerName":"  "}
			]}`))
		})
		assert.Nil(t, r.Resolve(context.Background(), soldAddress))
	})

	t.Run("no transactions", func(t *testing.T) {
		r := newResolver(t, io.Discard, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"transactions":[]}`))
		})
		assert.Nil(t, r.Resolve(context.Background(), soldAddress))
	})

	t.Run("upstream failure is logged with address and status", func(t *testing.T) {
		var logs bytes.Buffer
		r := newResolver(t, &logs, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		assert.Nil(t, r.Resolve(context.Background(), soldAddress))
		assert.Contains(t, logs.String(), "deed lookup failed")
		assert.Contains(t, logs.String(), "12 Oak St, Austin, TX 78701")
		assert.Contains(t, logs.String(), "status_code=503")
	})
}

func TestResolveCache(t *testing.T) {
	t.Run("hit skips the provider", func(t *testing.T) {
		var calls atomic.Int32
		cache := &mapCache{entries: map[string]models.BuyerInfo{
			CacheKey(soldAddress): {BuyerName: "Cached Buyer"},
		}}
		r := newResolver(t, io.Discard, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
		}, WithCache(cache))

		info := r.Resolve(context.Background(), soldAddress)
		require.NotNil(t, info)
		assert.Equal(t, "Cached Buyer", info.BuyerName)
		assert.Zero(t, calls.Load())
	})

	t.Run("success is stored and failures are not", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)
		cache := &mapCache{entries: map[string]models.BuyerInfo{}}
		r := newResolver(t, io.Discard, func(w http.ResponseWriter, _ *http.Request) {
			if fail.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"transactions":[{"saleDate":"2026-09-20","buyerName":"Jane Doe"}]}`))
		}, WithCache(cache))

		assert.Nil(t, r.Resolve(context.Background(), soldAddress))
		assert.Empty(t, cache.entries)

		fail.Store(false)
		require.NotNil(t, r.Resolve(context.Background(), soldAddress))
		assert.Equal(t, "Jane Doe", cache.entries[CacheKey(soldAddress)].BuyerName)
	})

	t.Run("cache read errors fall through to the provider", func(t *testing.T) {
		cache := &mapCache{entries: map[string]models.BuyerInfo{}, getErr: errors.New("redis down")}
		r := newResolver(t, io.Discard, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"transactions":[{"buyerName":"Jane Doe"}]}`))
		}, WithCache(cache))

		info := r.Resolve(context.Background(), soldAddress)
		require.NotNil(t, info)
		assert.Nil(t, info.SaleDate)
		assert.Nil(t, info.SalePrice)
	})
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-09-20", "2026-09-20T00:00:00Z", "09/20/2026", " 2026-09-20 "} {
		got := ParseDate(in)
		require.NotNil(t, got, in)
		assert.True(t, want.Equal(*got), in)
	}
	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("last tuesday"))
}

func TestCacheKey(t *testing.T) {
	a := models.Address{Street: "12  Oak St", City: "AUSTIN", State: "tx", Zip: "78701"}
	b := models.Address{Street: "12 oak st", City: "Austin", State: "TX", Zip: "78701"}
	assert.Equal(t, CacheKey(a), CacheKey(b))
}
