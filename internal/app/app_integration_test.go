//go:build integration

package app_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"chainlead/internal/app"
	"chainlead/internal/chain/models"
	"chainlead/internal/chain/service"
	"chainlead/internal/chain/store/listings"
	"chainlead/internal/platform/config"
	"chainlead/pkg/testutil/containers"
)

type AppSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	records  *httptest.Server
	people   *httptest.Server
	app      *app.App
}

func TestAppSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())

	saleDate := time.Now().UTC().AddDate(0, 0, -3).Format(time.DateOnly)
	s.records = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("street") != "12 Oak St" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"transactions": []map[string]any{{
				"documentType":        "Grant Deed",
				"saleDate":            saleDate,
				"salePrice":           412000,
				"buyerName":           "Jane A. Doe",
				"buyerMailingAddress": "12 Oak St, Austin, TX 78701",
			}},
		})
	}))
	s.people = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"properties": []map[string]any{
				{
					"ownerName":       "Jane Doe",
					"address":         map[string]string{"street": "9 Elm St", "city": "Dallas", "state": "TX", "zip": "75201"},
					"mailingAddress":  "12 Oak St, Austin, TX 78701",
					"propertyAddress": "9 Elm St, Dallas, TX 75201",
				},
				{
					"ownerName": "Jane Doe",
					"address":   map[string]string{"street": "12 Oak St", "city": "Austin", "state": "TX", "zip": "78701"},
				},
			},
		})
	}))

	cfg := config.Config{
		Database:        config.DatabaseConfig{URL: s.postgres.URL, MaxOpenConns: 5},
		PropertyRecords: config.ProviderConfig{BaseURL: s.records.URL},
		PersonSearch:    config.ProviderConfig{BaseURL: s.people.URL},
		Chains:          config.ChainsConfig{DeedCacheTTL: time.Minute},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.Build(context.Background(), cfg, logger, prometheus.NewRegistry())
	s.Require().NoError(err)
	s.app = a
}

func (s *AppSuite) TearDownSuite() {
	if s.app != nil {
		s.app.Close()
	}
	s.records.Close()
	s.people.Close()
}

func (s *AppSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "ownership_chains", "listings"))
}

func (s *AppSuite) TestHealth() {
	s.NoError(s.app.Health(context.Background()))
}

func (s *AppSuite) TestBatchScanPersistsOnceAndSkipsProcessed() {
	ctx := context.Background()
	s.Require().NoError(s.app.Listings.Save(ctx, listings.Listing{
		Ref: models.SoldListingRef{
			ID:      "L-1",
			Address: models.Address{Street: "12 Oak St", City: "Austin", State: "TX", Zip: "78701"},
		},
		Status:     listings.StatusSold,
		LastSeenAt: time.Now().UTC(),
	}))

	first, err := s.app.Service.Detect(ctx, service.BatchScan(0))
	s.Require().NoError(err)
	s.Equal(1, first.ListingsProcessed)
	s.Require().Len(first.Chains, 1)
	s.Equal("9 Elm St", first.Chains[0].Owned.Street)
	s.Equal(1, first.ChainsPersisted)

	second, err := s.app.Service.Detect(ctx, service.BatchScan(0))
	s.Require().NoError(err)
	s.Equal(0, second.ListingsProcessed)
	s.Equal("No unprocessed sold listings to scan", second.Message)

	again, err := s.app.Service.Detect(ctx, service.ByListingID("L-1"))
	s.Require().NoError(err)
	s.Len(again.Chains, 1)
	s.Equal(0, again.ChainsPersisted)

	chain, err := s.app.Chains.FindByPair(ctx, "12 Oak St", "9 Elm St")
	s.Require().NoError(err)
	s.Equal(models.StatusDetected, chain.Status)
	s.Equal("L-1", chain.SoldListingID)
	s.Equal("jane doe", chain.Match.BuyerNameNormalized)
}
