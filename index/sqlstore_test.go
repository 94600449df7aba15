package index_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/meenmo/fralib/index"
	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/utils"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLFixingStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := index.NewSQLFixingStore(openSQLite(t), index.DialectSQLite, time.Second)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))

	notified := 0
	store.Register(observer.ObserverFunc(func() { notified++ }))

	d := utils.MustParseDate("2025-03-12")
	_, ok, err := store.Fixing("EURIBOR6M", d)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.AddFixing("EURIBOR6M", d, 0.0271))
	require.NoError(t, store.AddFixing("EURIBOR6M", d, 0.0272))
	assert.Equal(t, 2, notified)

	rate, ok, err := store.Fixing("EURIBOR6M", d)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.0272, rate)

	_, ok, err = store.LoadFixing(ctx, "EURIBOR3M", d)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLFixingStoreWithoutSchema(t *testing.T) {
	t.Parallel()

	store, err := index.NewSQLFixingStore(openSQLite(t), index.DialectSQLite, 0)
	require.NoError(t, err)
	_, _, err = store.Fixing("EURIBOR6M", utils.MustParseDate("2025-03-12"))
	assert.Error(t, err)

	_, err = index.NewSQLFixingStore(nil, index.DialectPostgres, 0)
	assert.Error(t, err)
	_, err = index.NewSQLFixingStore(openSQLite(t), index.Dialect("mysql"), 0)
	assert.Error(t, err)
}

type countingStore struct {
	*index.MapFixingStore
	lookups int
}

func (c *countingStore) Fixing(name string, date time.Time) (float64, bool, error) {
	c.lookups++
	return c.MapFixingStore.Fixing(name, date)
}

func TestCachedFixingStore(t *testing.T) {
	t.Parallel()

	inner := &countingStore{MapFixingStore: index.NewMapFixingStore()}
	cached := index.NewCachedFixingStore(inner, time.Minute)
	defer cached.Close()

	notified := 0
	cached.Register(observer.ObserverFunc(func() { notified++ }))

	d := utils.MustParseDate("2025-03-12")
	_, ok, err := cached.Fixing("EURIBOR6M", d)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cached.AddFixing("EURIBOR6M", d, 0.0271))
	assert.Equal(t, 1, notified)

	for i := 0; i < 3; i++ {
		rate, ok, err := cached.Fixing("EURIBOR6M", d)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0.0271, rate)
	}
	assert.Equal(t, 2, inner.lookups)

	// A write to the inner store flushes the cache.
	require.NoError(t, inner.AddFixing("EURIBOR6M", d, 0.0275))
	rate, _, _ := cached.Fixing("EURIBOR6M", d)
	assert.Equal(t, 0.0275, rate)
	assert.Equal(t, 3, inner.lookups)
	assert.Equal(t, 2, notified)
}
