package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/maltedev/listing-scraper/internal/models"
)

const listingsTable = "scraped_listings"

var listingColumns = []string{
	"run_id", "source_url", "page", "position", "name", "price", "sold", "scraped_at",
}

const createListingsTable = `
CREATE TABLE IF NOT EXISTS scraped_listings (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID        NOT NULL,
	source_url  TEXT        NOT NULL,
	page        INTEGER     NOT NULL,
	position    INTEGER     NOT NULL,
	name        TEXT        NOT NULL,
	price       TEXT        NOT NULL,
	sold        TEXT        NOT NULL,
	scraped_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scraped_listings_run ON scraped_listings (run_id, page);
`

// Copier is the part of a pgx pool or transaction the repository needs.
type Copier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Transactor runs fn inside a single transaction. *DB satisfies it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(Copier) error) error
}

// ListingRepository stores scraped batches in Postgres. It implements
// storage.Sink.
type ListingRepository struct {
	db Copier
}

func NewListingRepository(db Copier) *ListingRepository {
	return &ListingRepository{db: db}
}

// inTx runs fn in a transaction when the backing store supports one, so a
// page is either stored whole or not at all.
func (r *ListingRepository) inTx(ctx context.Context, fn func(Copier) error) error {
	if t, ok := r.db.(Transactor); ok {
		return t.WithTx(ctx, fn)
	}
	return fn(r.db)
}

func (r *ListingRepository) EnsureSchema(ctx context.Context) error {
	return r.inTx(ctx, func(c Copier) error {
		if _, err := c.Exec(ctx, createListingsTable); err != nil {
			return fmt.Errorf("failed to create %s: %w", listingsTable, err)
		}
		return nil
	})
}

// Write copies every listing of batch in one round trip. Positions are the
// listing's index within its page.
func (r *ListingRepository) Write(ctx context.Context, batch *models.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	rows := make([][]any, 0, batch.Len())
	for i, l := range batch.Listings {
		rows = append(rows, []any{
			batch.RunID, batch.SourceURL, batch.Page, i, l.Name, l.Price, l.Sold, batch.ScrapedAt,
		})
	}

	return r.inTx(ctx, func(c Copier) error {
		n, err := c.CopyFrom(ctx, pgx.Identifier{listingsTable}, listingColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy listings: %w", err)
		}
		if n != int64(len(rows)) {
			return fmt.Errorf("copied %d of %d listings", n, len(rows))
		}
		return nil
	})
}
