package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/listing-scraper/internal/models"
)

type MockCopier struct {
	mock.Mock
	rows [][]any
}

func (m *MockCopier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	mockArgs := m.Called(ctx, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), mockArgs.Error(0)
}

func (m *MockCopier) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	for rowSrc.Next() {
		values, err := rowSrc.Values()
		if err != nil {
			return 0, err
		}
		m.rows = append(m.rows, values)
	}
	args := m.Called(ctx, tableName, columnNames)
	return args.Get(0).(int64), args.Error(1)
}

func testBatch() *models.Batch {
	b := models.NewBatch(uuid.New(), "https://www.daraz.pk/catalog/?q=mobile", 2)
	b.ScrapedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.Add(models.Listing{Name: "Phone A", Price: "Rs. 1,000", Sold: "10 sold"})
	b.Add(models.Listing{Name: "Phone B", Price: "Rs. 2,000", Sold: "20 sold"})
	return b
}

func TestListingRepository_Write(t *testing.T) {
	ctx := context.Background()

	t.Run("copies every listing", func(t *testing.T) {
		db := new(MockCopier)
		db.On("CopyFrom", ctx, pgx.Identifier{"scraped_listings"}, listingColumns).Return(int64(2), nil)
		batch := testBatch()

		err := NewListingRepository(db).Write(ctx, batch)

		require.NoError(t, err)
		db.AssertExpectations(t)
		require.Len(t, db.rows, 2)
		assert.Equal(t, []any{batch.RunID, batch.SourceURL, 2, 0, "Phone A", "Rs. 1,000", "10 sold", batch.ScrapedAt}, db.rows[0])
		assert.Equal(t, 1, db.rows[1][3])
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		db := new(MockCopier)

		err := NewListingRepository(db).Write(ctx, models.NewBatch(uuid.New(), "u", 1))

		require.NoError(t, err)
		db.AssertNotCalled(t, "CopyFrom", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("copy error", func(t *testing.T) {
		db := new(MockCopier)
		db.On("CopyFrom", ctx, mock.Anything, mock.Anything).Return(int64(0), errors.New("relation does not exist"))

		err := NewListingRepository(db).Write(ctx, testBatch())

		assert.ErrorContains(t, err, "failed to copy listings")
		assert.ErrorContains(t, err, "relation does not exist")
	})

	t.Run("short copy", func(t *testing.T) {
		db := new(MockCopier)
		db.On("CopyFrom", ctx, mock.Anything, mock.Anything).Return(int64(1), nil)

		err := NewListingRepository(db).Write(ctx, testBatch())

		assert.EqualError(t, err, "copied 1 of 2 listings")
	})
}

func TestListingRepository_EnsureSchema(t *testing.T) {
	ctx := context.Background()

	db := new(MockCopier)
	db.On("Exec", ctx, createListingsTable).Return(nil).Once()
	require.NoError(t, NewListingRepository(db).EnsureSchema(ctx))

	failing := new(MockCopier)
	failing.On("Exec", ctx, mock.Anything).Return(errors.New("permission denied"))
	assert.ErrorContains(t, NewListingRepository(failing).EnsureSchema(ctx), "failed to create scraped_listings")
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "scraper", Password: "secret", Database: "listings"}

	assert.Equal(t, "postgres://scraper:secret@db:5433/listings?sslmode=disable", cfg.DSN())
}

type fakeTx struct {
	pgx.Tx
	copier     *MockCopier
	committed  bool
	rolledBack bool
	commitErr  error
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return tx.copier.Exec(ctx, sql, args...)
}

func (tx *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return tx.copier.CopyFrom(ctx, tableName, columnNames, rowSrc)
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	return tx.commitErr
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

// txStore is a Copier that also hands out transactions, like *DB.
type txStore struct {
	*MockCopier
	tx *fakeTx
}

func (s *txStore) WithTx(ctx context.Context, fn func(Copier) error) error {
	return runTx(ctx, fakeBeginner{tx: s.tx}, fn)
}

func newTxStore() *txStore {
	m := new(MockCopier)
	return &txStore{MockCopier: m, tx: &fakeTx{copier: m}}
}

func TestListingRepository_WriteInTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits a full page", func(t *testing.T) {
		store := newTxStore()
		store.On("CopyFrom", ctx, pgx.Identifier{"scraped_listings"}, listingColumns).Return(int64(2), nil)

		err := NewListingRepository(store).Write(ctx, testBatch())

		require.NoError(t, err)
		assert.True(t, store.tx.committed)
		assert.False(t, store.tx.rolledBack)
		assert.Len(t, store.rows, 2)
	})

	t.Run("rolls back a short copy", func(t *testing.T) {
		store := newTxStore()
		store.On("CopyFrom", ctx, mock.Anything, mock.Anything).Return(int64(1), nil)

		err := NewListingRepository(store).Write(ctx, testBatch())

		assert.EqualError(t, err, "copied 1 of 2 listings")
		assert.False(t, store.tx.committed)
		assert.True(t, store.tx.rolledBack)
	})

	t.Run("schema is created in a transaction", func(t *testing.T) {
		store := newTxStore()
		store.On("Exec", ctx, createListingsTable).Return(nil).Once()

		require.NoError(t, NewListingRepository(store).EnsureSchema(ctx))
		assert.True(t, store.tx.committed)
	})
}

func TestRunTx(t *testing.T) {
	ctx := context.Background()

	t.Run("begin failure", func(t *testing.T) {
		called := false
		err := runTx(ctx, fakeBeginner{err: errors.New("too many clients")}, func(Copier) error {
			called = true
			return nil
		})

		assert.ErrorContains(t, err, "failed to begin transaction: too many clients")
		assert.False(t, called)
	})

	t.Run("commit failure", func(t *testing.T) {
		tx := &fakeTx{commitErr: errors.New("connection reset")}

		err := runTx(ctx, fakeBeginner{tx: tx}, func(Copier) error { return nil })

		assert.ErrorContains(t, err, "failed to commit transaction: connection reset")
	})
}

func TestConfig_PoolConfig(t *testing.T) {
	base := Config{Host: "db", Port: 5432, User: "scraper", Database: "listings"}
	defaults, err := base.poolConfig()
	require.NoError(t, err)

	tuned := base
	tuned.MaxConns = 8
	tuned.MinConns = 2
	tuned.MaxConnLifetime = 2 * time.Hour
	pc, err := tuned.poolConfig()
	require.NoError(t, err)

	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, 2*time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, defaults.MaxConnIdleTime, pc.MaxConnIdleTime, "unset knobs keep pgx defaults")
}
