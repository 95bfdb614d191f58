//go:build integration

package listings_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chainlead/internal/chain/models"
	"chainlead/internal/chain/store/listings"
	"chainlead/pkg/platform/sentinel"
	"chainlead/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *listings.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = listings.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "listings"))
}

func (s *PostgresStoreSuite) seed(id, status string, lastSeen time.Time) {
	s.Require().NoError(s.store.Save(context.Background(), listings.Listing{
		Ref: models.SoldListingRef{
			ID:      id,
			Address: models.Address{Street: "1 " + id + " Rd", City: "Austin", State: "TX", Zip: "78701"},
		},
		Status:     status,
		LastSeenAt: lastSeen,
	}))
}

func (s *PostgresStoreSuite) TestFindByID() {
	ctx := context.Background()
	s.seed("L-1", listings.StatusSold, time.Now())

	ref, err := s.store.FindByID(ctx, "L-1")
	s.Require().NoError(err)
	s.Equal("1 L-1 Rd", ref.Address.Street)
	s.Equal("78701", ref.Address.Zip)

	_, err = s.store.FindByID(ctx, "L-404")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListRecentlySold() {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	s.seed("A", listings.StatusSold, base.Add(-2*time.Hour))
	s.seed("B", listings.StatusSold, base)
	s.seed("C", "active", base.Add(time.Minute))
	s.seed("D", listings.StatusSold, base.Add(-time.Hour))

	refs, err := s.store.ListRecentlySold(ctx, 2, 0)
	s.Require().NoError(err)
	s.Require().Len(refs, 2)
	s.Equal("B", refs[0].ID)
	s.Equal("D", refs[1].ID)

	refs, err = s.store.ListRecentlySold(ctx, 10, 2)
	s.Require().NoError(err)
	s.Require().Len(refs, 1)
	s.Equal("A", refs[0].ID)
}

func (s *PostgresStoreSuite) TestSaveReplaces() {
	ctx := context.Background()
	s.seed("R", "active", time.Now())
	s.seed("R", listings.StatusSold, time.Now())

	refs, err := s.store.ListRecentlySold(ctx, 10, 0)
	s.Require().NoError(err)
	s.Len(refs, 1)
}
