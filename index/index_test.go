package index_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/index"
	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/rates"
	"github.com/meenmo/fralib/settings"
	"github.com/meenmo/fralib/termstructure"
	"github.com/meenmo/fralib/utils"
)

func newEuribor6M(t *testing.T, today time.Time, forwarding termstructure.YieldCurve, store index.FixingStore) (*index.IborIndex, *settings.Context) {
	t.Helper()
	ctx := settings.New()
	ctx.SetEvaluationDate(today)
	idx, err := index.FromPreset(market.EURIBOR6M, forwarding, store, ctx)
	require.NoError(t, err)
	return idx, ctx
}

func TestIborIndexDates(t *testing.T) {
	t.Parallel()

	idx, _ := newEuribor6M(t, utils.MustParseDate("2025-03-03"), nil, nil)

	// Two TARGET business days before a Tuesday after Easter Monday.
	assert.Equal(t, utils.MustParseDate("2025-04-16"), idx.FixingDate(utils.MustParseDate("2025-04-22")))
	assert.Equal(t, utils.MustParseDate("2025-04-22"), idx.ValueDate(utils.MustParseDate("2025-04-16")))

	// End of month rolls to end of month.
	assert.Equal(t, utils.MustParseDate("2025-08-29"), idx.MaturityDate(utils.MustParseDate("2025-02-28")))
	assert.Equal(t, utils.MustParseDate("2025-09-15"), idx.MaturityDate(utils.MustParseDate("2025-03-14")))

	assert.Equal(t, "EURIBOR6M", idx.Name())
	assert.Equal(t, market.Act360, idx.DayCount())
	assert.Equal(t, calendar.TARGET, idx.FixingCalendar())
	assert.Equal(t, calendar.ModifiedFollowing, idx.BusinessDayConvention())
	assert.Nil(t, idx.ForwardingCurve())
}

func TestIborIndexFixing(t *testing.T) {
	t.Parallel()

	today := utils.MustParseDate("2025-03-14")
	curve := termstructure.NewFlatForward(today, rates.InterestRate{Rate: 0.03, DayCount: market.Act365F, Compounding: rates.Continuous}, calendar.TARGET)
	store := index.NewMapFixingStore()
	idx, _ := newEuribor6M(t, today, curve, store)

	past := utils.MustParseDate("2025-03-12")
	_, err := idx.Fixing(past)
	assert.ErrorIs(t, err, index.ErrMissingFixing)

	require.NoError(t, idx.AddFixing(past, 0.0271))
	got, err := idx.Fixing(past)
	require.NoError(t, err)
	assert.Equal(t, 0.0271, got)

	// Today without a published fixing is forecast; with one, the fixing wins.
	forecast, err := idx.Fixing(today)
	require.NoError(t, err)
	want, err := idx.ForecastFixing(today)
	require.NoError(t, err)
	assert.Equal(t, want, forecast)

	require.NoError(t, idx.AddFixing(today, 0.0255))
	got, err = idx.Fixing(today)
	require.NoError(t, err)
	assert.Equal(t, 0.0255, got)

	// Forecast: simple rate over the index accrual period.
	future := utils.MustParseDate("2025-06-16")
	start := idx.ValueDate(future)
	end := idx.MaturityDate(start)
	p1, _ := curve.Discount(start)
	p2, _ := curve.Discount(end)
	got, err = idx.Fixing(future)
	require.NoError(t, err)
	assert.InDelta(t, (p1/p2-1)/market.Act360.YearFraction(start, end), got, 1e-14)

	_, err = idx.Fixing(utils.MustParseDate("2025-03-15"))
	assert.ErrorIs(t, err, index.ErrInvalidFixingDate)
}

func TestIborIndexForecastWithoutCurve(t *testing.T) {
	t.Parallel()

	idx, _ := newEuribor6M(t, utils.MustParseDate("2025-03-14"), nil, nil)
	_, err := idx.Fixing(utils.MustParseDate("2025-06-16"))
	assert.ErrorIs(t, err, index.ErrNoForwardingCurve)
}

func TestIborIndexForwardsNotifications(t *testing.T) {
	t.Parallel()

	today := utils.MustParseDate("2025-03-14")
	curve := termstructure.NewFlatForward(today, rates.NewSimple(0.03, market.Act360), calendar.TARGET)
	store := index.NewMapFixingStore()
	idx, _ := newEuribor6M(t, today, curve, store)

	notified := 0
	idx.Register(observer.ObserverFunc(func() { notified++ }))

	curve.SetRate(0.031)
	require.NoError(t, store.AddFixing("EURIBOR6M", today, 0.03))
	assert.Equal(t, 2, notified)

	idx.Close()
	curve.SetRate(0.032)
	assert.Equal(t, 2, notified)
}

func TestNewIborIndexValidation(t *testing.T) {
	t.Parallel()

	_, err := index.NewIborIndex(index.IborIndexParams{Name: market.ESTR, Tenor: market.Period{Length: 1, Unit: calendar.Days}, Calendar: calendar.TARGET, DayCount: market.Act360})
	assert.Error(t, err)

	_, err = index.NewIborIndex(index.IborIndexParams{Name: market.EURIBOR3M, Calendar: calendar.TARGET, DayCount: market.Act360})
	assert.Error(t, err)

	_, err = index.FromPreset(market.SOFR, nil, nil, nil)
	assert.Error(t, err)
}

func TestNewIborIndexTypedNilDependencies(t *testing.T) {
	t.Parallel()

	today := utils.MustParseDate("2025-03-14")
	idx, _ := newEuribor6M(t, today, (*termstructure.InterpolatedDiscountCurve)(nil), (*index.MapFixingStore)(nil))
	defer idx.Close()
	assert.Nil(t, idx.ForwardingCurve())

	_, err := idx.Fixing(today)
	assert.ErrorIs(t, err, index.ErrNoForwardingCurve)

	require.NoError(t, idx.AddFixing(today, 0.025))
	rate, err := idx.Fixing(today)
	require.NoError(t, err)
	assert.Equal(t, 0.025, rate)
}

type readOnlyStore struct{}

func (readOnlyStore) Fixing(string, time.Time) (float64, bool, error) { return 0, false, nil }

func TestAddFixingReadOnly(t *testing.T) {
	t.Parallel()

	idx, _ := newEuribor6M(t, utils.MustParseDate("2025-03-14"), nil, readOnlyStore{})
	err := idx.AddFixing(utils.MustParseDate("2025-03-12"), 0.02)
	assert.ErrorIs(t, err, index.ErrReadOnly)
}
