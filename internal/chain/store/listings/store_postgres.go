package listings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"chainlead/internal/chain/models"
	"chainlead/pkg/platform/sentinel"
)

const table = "listings"

// PostgresStore reads listings from PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgres constructs a PostgreSQL-backed listings store.
func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type listingRow struct {
	ID         string    `db:"id"`
	Street     string    `db:"street"`
	City       string    `db:"city"`
	State      string    `db:"state"`
	Zip        string    `db:"zip"`
	Status     string    `db:"status"`
	LastSeenAt time.Time `db:"last_seen_at"`
}

func (r listingRow) toRef() models.SoldListingRef {
	return models.SoldListingRef{
		ID:      r.ID,
		Address: models.Address{Street: r.Street, City: r.City, State: r.State, Zip: r.Zip},
	}
}

var listingColumns = []string{"id", "street", "city", "state", "zip", "status", "last_seen_at"}

// Save inserts or replaces a listing. Ingestion owns this table in production;
// the method exists for seeding and tests.
func (s *PostgresStore) Save(ctx context.Context, l Listing) error {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(listingColumns...)
	ib.Values(l.Ref.ID, l.Ref.Address.Street, l.Ref.Address.City, l.Ref.Address.State, l.Ref.Address.Zip, l.Status, l.LastSeenAt)
	ib.SQL(`ON CONFLICT (id) DO UPDATE SET
		street = EXCLUDED.street, city = EXCLUDED.city, state = EXCLUDED.state, zip = EXCLUDED.zip,
		status = EXCLUDED.status, last_seen_at = EXCLUDED.last_seen_at`)

	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save listing %s: %w", l.Ref.ID, err)
	}
	return nil
}

// FindByID returns the listing with id regardless of status.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.SoldListingRef, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(listingColumns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row listingRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find listing %s: %w", id, err)
	}
	ref := row.toRef()
	return &ref, nil
}

// ListRecentlySold returns sold listings, most recently seen first.
func (s *PostgresStore) ListRecentlySold(ctx context.Context, limit, offset int) ([]models.SoldListingRef, error) {
	if limit <= 0 {
		return []models.SoldListingRef{}, nil
	}
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(listingColumns...)
	sb.From(table)
	sb.Where(sb.Equal("status", StatusSold))
	sb.OrderBy("last_seen_at DESC", "id ASC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sold listings: %w", err)
	}
	out := make([]models.SoldListingRef, len(rows))
	for i, r := range rows {
		out[i] = r.toRef()
	}
	return out, nil
}
