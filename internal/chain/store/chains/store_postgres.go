package chains

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chainlead/internal/chain/models"
	"chainlead/pkg/platform/sentinel"
)

const table = "ownership_chains"

var chainColumns = []string{
	"id",
	"sold_address", "sold_city", "sold_state", "sold_zip",
	"sale_date", "sale_price",
	"buyer_name", "buyer_name_normalized",
	"owned_property_address", "owned_property_city", "owned_property_state", "owned_property_zip",
	"confidence_score", "match_signals", "chain_status", "sold_listing_id", "created_at",
}

// PostgresStore persists chains in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgres constructs a PostgreSQL-backed chain store.
func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InsertIfAbsent writes chain unless its pair already exists. An existing row
// is never modified, so a status set downstream survives re-detection.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, chain *models.OwnershipChain) (bool, error) {
	signals, err := json.Marshal(chain.Match.Signals)
	if err != nil {
		return false, fmt.Errorf("encode match signals: %w", err)
	}
	m := chain.Match
	var listingID *string
	if chain.SoldListingID != "" {
		listingID = &chain.SoldListingID
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(chainColumns...)
	ib.Values(
		chain.ID,
		m.Sold.Street, m.Sold.City, m.Sold.State, m.Sold.Zip,
		m.SaleDate, m.SalePrice,
		m.BuyerName, m.BuyerNameNormalized,
		m.Owned.Street, m.Owned.City, m.Owned.State, m.Owned.Zip,
		m.ConfidenceScore, string(signals), string(chain.Status), listingID, chain.CreatedAt,
	)
	ib.SQL("ON CONFLICT ON CONSTRAINT uq_ownership_chains_pair DO NOTHING")

	query, args := ib.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert ownership chain: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert ownership chain rows affected: %w", err)
	}
	return n == 1, nil
}

// ListingIDsWithChains returns the subset of ids that already have a chain.
func (s *PostgresStore) ListingIDsWithChains(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT DISTINCT sold_listing_id FROM ownership_chains WHERE sold_listing_id = ANY($1)`
	var found []string
	if err := s.db.SelectContext(ctx, &found, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list processed listings: %w", err)
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

type chainRow struct {
	ID                   uuid.UUID       `db:"id"`
	SoldAddress          string          `db:"sold_address"`
	SoldCity             string          `db:"sold_city"`
	SoldState            string          `db:"sold_state"`
	SoldZip              string          `db:"sold_zip"`
	SaleDate             sql.NullTime    `db:"sale_date"`
	SalePrice            sql.NullFloat64 `db:"sale_price"`
	BuyerName            string          `db:"buyer_name"`
	BuyerNameNormalized  string          `db:"buyer_name_normalized"`
	OwnedPropertyAddress string          `db:"owned_property_address"`
	OwnedPropertyCity    string          `db:"owned_property_city"`
	OwnedPropertyState   string          `db:"owned_property_state"`
	OwnedPropertyZip     string          `db:"owned_property_zip"`
	ConfidenceScore      int             `db:"confidence_score"`
	MatchSignals         []byte          `db:"match_signals"`
	ChainStatus          string          `db:"chain_status"`
	SoldListingID        sql.NullString  `db:"sold_listing_id"`
	CreatedAt            time.Time       `db:"created_at"`
}

func (r chainRow) toModel() (*models.OwnershipChain, error) {
	signals := map[string]bool{}
	if len(r.MatchSignals) > 0 {
		if err := json.Unmarshal(r.MatchSignals, &signals); err != nil {
			return nil, fmt.Errorf("decode match signals: %w", err)
		}
	}
	var saleDate *time.Time
	if r.SaleDate.Valid {
		d := r.SaleDate.Time
		saleDate = &d
	}
	var salePrice *float64
	if r.SalePrice.Valid {
		p := r.SalePrice.Float64
		salePrice = &p
	}
	return &models.OwnershipChain{
		ID: r.ID,
		Match: models.ChainMatch{
			Sold:                models.Address{Street: r.SoldAddress, City: r.SoldCity, State: r.SoldState, Zip: r.SoldZip},
			SaleDate:            saleDate,
			SalePrice:           salePrice,
			BuyerName:           r.BuyerName,
			BuyerNameNormalized: r.BuyerNameNormalized,
			Owned:               models.Address{Street: r.OwnedPropertyAddress, City: r.OwnedPropertyCity, State: r.OwnedPropertyState, Zip: r.OwnedPropertyZip},
			ConfidenceScore:     r.ConfidenceScore,
			Signals:             signals,
		},
		Status:        models.ChainStatus(r.ChainStatus),
		SoldListingID: r.SoldListingID.String,
		CreatedAt:     r.CreatedAt,
	}, nil
}

// FindByPair returns the chain for a pair.
func (s *PostgresStore) FindByPair(ctx context.Context, soldAddress, ownedAddress string) (*models.OwnershipChain, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(chainColumns...)
	sb.From(table)
	sb.Where(
		sb.Equal("sold_address", soldAddress),
		sb.Equal("owned_property_address", ownedAddress),
	)

	query, args := sb.Build()
	var row chainRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chain %q -> %q: %w", soldAddress, ownedAddress, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find ownership chain: %w", err)
	}
	return row.toModel()
}

// UpdateStatus moves a chain to status. Downstream reveal and contact
// workflows use it; detection never does.
func (s *PostgresStore) UpdateStatus(ctx context.Context, soldAddress, ownedAddress string, status models.ChainStatus) error {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("chain_status", string(status)))
	ub.Where(
		ub.Equal("sold_address", soldAddress),
		ub.Equal("owned_property_address", ownedAddress),
	)

	query, args := ub.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update chain status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chain %q -> %q: %w", soldAddress, ownedAddress, sentinel.ErrNotFound)
	}
	return nil
}
