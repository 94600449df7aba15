package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/utils"
)

// ErrSchemaMissing is returned when the fixings table does not exist.
var ErrSchemaMissing = errors.New("fixings table missing")

// Dialect selects the SQL placeholder style.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DefaultQueryTimeout bounds a single fixing lookup.
const DefaultQueryTimeout = 5 * time.Second

// SQLFixingStore reads and writes fixings in a "fixings" table:
//
//	index_name TEXT, fixing_date TEXT (YYYY-MM-DD), rate DOUBLE PRECISION
//
// Rates are stored as decimals (0.0325 == 3.25%).
type SQLFixingStore struct {
	observer.Subject

	db      *sql.DB
	dialect Dialect
	timeout time.Duration

	selectSQL string
	upsertSQL string
}

// NewSQLFixingStore wraps an open database handle.
func NewSQLFixingStore(db *sql.DB, dialect Dialect, timeout time.Duration) (*SQLFixingStore, error) {
	if db == nil {
		return nil, fmt.Errorf("NewSQLFixingStore: nil db")
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	s := &SQLFixingStore{db: db, dialect: dialect, timeout: timeout}
	switch dialect {
	case DialectPostgres:
		s.selectSQL = `SELECT rate FROM fixings WHERE index_name = $1 AND fixing_date = $2`
		s.upsertSQL = `INSERT INTO fixings (index_name, fixing_date, rate) VALUES ($1, $2, $3)
ON CONFLICT (index_name, fixing_date) DO UPDATE SET rate = excluded.rate`
	case DialectSQLite:
		s.selectSQL = `SELECT rate FROM fixings WHERE index_name = ? AND fixing_date = ?`
		s.upsertSQL = `INSERT INTO fixings (index_name, fixing_date, rate) VALUES (?, ?, ?)
ON CONFLICT (index_name, fixing_date) DO UPDATE SET rate = excluded.rate`
	default:
		return nil, fmt.Errorf("NewSQLFixingStore: unsupported dialect %q", dialect)
	}
	return s, nil
}

// EnsureSchema creates the fixings table if it does not exist.
func (s *SQLFixingStore) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS fixings (
	index_name  TEXT NOT NULL,
	fixing_date TEXT NOT NULL,
	rate        DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (index_name, fixing_date)
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("EnsureSchema: %w", classify(err))
	}
	return nil
}

// LoadFixing looks up a fixing under ctx.
func (s *SQLFixingStore) LoadFixing(ctx context.Context, name string, date time.Time) (float64, bool, error) {
	var rate float64
	err := s.db.QueryRowContext(ctx, s.selectSQL, name, date.Format(utils.DateLayout)).Scan(&rate)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("LoadFixing %s %s: %w", name, date.Format(utils.DateLayout), classify(err))
	}
	return rate, true, nil
}

// StoreFixing inserts or replaces a fixing under ctx and notifies observers.
func (s *SQLFixingStore) StoreFixing(ctx context.Context, name string, date time.Time, rate float64) error {
	if _, err := s.db.ExecContext(ctx, s.upsertSQL, name, date.Format(utils.DateLayout), rate); err != nil {
		return fmt.Errorf("StoreFixing %s %s: %w", name, date.Format(utils.DateLayout), classify(err))
	}
	s.Notify()
	return nil
}

// Fixing implements FixingStore with the store's query timeout.
func (s *SQLFixingStore) Fixing(name string, date time.Time) (float64, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.LoadFixing(ctx, name, date)
}

// AddFixing implements FixingWriter with the store's query timeout.
func (s *SQLFixingStore) AddFixing(name string, date time.Time, rate float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.StoreFixing(ctx, name, date, rate)
}

// classify maps Postgres error codes onto package errors.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pqErr.Message)
	}
	return err
}
