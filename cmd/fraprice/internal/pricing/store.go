package pricing

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/meenmo/fralib/config"
	"github.com/meenmo/fralib/index"
)

// OpenFixingStore opens the configured fixing database. It returns a nil store and a no-op
// close function when no driver is configured.
func OpenFixingStore(ctx context.Context, cfg config.FixingsConfig) (index.FixingStore, func() error, error) {
	noop := func() error { return nil }

	var dialect index.Dialect
	switch cfg.Driver {
	case "":
		return nil, noop, nil
	case "postgres":
		dialect = index.DialectPostgres
	case "sqlite":
		dialect = index.DialectSQLite
	default:
		return nil, noop, fmt.Errorf("OpenFixingStore: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, noop, fmt.Errorf("OpenFixingStore: %w", err)
	}
	if dialect == index.DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, noop, fmt.Errorf("OpenFixingStore: %w", err)
	}

	sqlStore, err := index.NewSQLFixingStore(db, dialect, cfg.QueryTimeout)
	if err != nil {
		db.Close()
		return nil, noop, err
	}
	if err := sqlStore.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, noop, err
	}

	if cfg.CacheTTL <= 0 {
		return sqlStore, db.Close, nil
	}
	cached := index.NewCachedFixingStore(sqlStore, cfg.CacheTTL)
	return cached, func() error {
		cached.Close()
		return db.Close()
	}, nil
}
