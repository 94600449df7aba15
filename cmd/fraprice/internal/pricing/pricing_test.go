package pricing_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fralib/cmd/fraprice/internal/pricing"
	"github.com/meenmo/fralib/config"
	"github.com/meenmo/fralib/index"
	"github.com/meenmo/fralib/utils"
)

var cmpOpts = []cmp.Option{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmpopts.EquateApprox(0, 1e-9),
}

func curve() pricing.CurveInput {
	return pricing.CurveInput{
		ReferenceDate: "2025-03-03",
		DayCount:      "ACT/360",
		Calendar:      "TARGET",
		DiscountFactors: map[string]float64{
			"2025-03-05": 0.99,
			"2025-09-01": 0.97,
		},
	}
}

func newPricer() *pricing.Pricer {
	return pricing.NewPricer(config.DefaultConfig.Pricing, nil, nil)
}

func TestPriceCurveOnly(t *testing.T) {
	t.Parallel()

	in := pricing.Input{
		Curve: curve(),
		Trades: []pricing.TradeInput{
			{ID: "long", ValueDate: "2025-03-05", MaturityDate: "2025-09-01", Position: "LONG", StrikePct: 4, Notional: 1_000_000, FixingDays: 2},
			{ID: "short", ValueDate: "2025-03-05", MaturityDate: "2025-09-01", Position: "SELL", StrikePct: 4, Notional: 2_000_000, FixingDays: 2},
			{ID: "bad", ValueDate: "2025-03-05", MaturityDate: "2025-09-01", Position: "LONG", StrikePct: 4, Notional: 0},
		},
	}

	out, err := newPricer().Price(context.Background(), in)
	require.NoError(t, err)

	want := []pricing.TradeOutput{
		{
			ID:             "long",
			Strategy:       "CurveImplied",
			FixingDate:     "2025-03-03",
			ValueDate:      "2025-03-05",
			MaturityDate:   "2025-09-01",
			ForwardRatePct: 4.1237113402,
			Amount:         decimal.RequireFromString("606.06"),
			NPV:            decimal.RequireFromString("600"),
		},
		{
			ID:             "short",
			Strategy:       "CurveImplied",
			FixingDate:     "2025-03-03",
			ValueDate:      "2025-03-05",
			MaturityDate:   "2025-09-01",
			ForwardRatePct: 4.1237113402,
			Amount:         decimal.RequireFromString("-1212.12"),
			NPV:            decimal.RequireFromString("-1200"),
		},
	}
	if diff := cmp.Diff(want, out.Trades[:2], cmpOpts...); diff != "" {
		t.Fatalf("trades mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, out.Trades[2].Error, "notional must be positive")
	assert.Equal(t, "2025-03-03", out.EvaluationDate)
	assert.True(t, decimal.RequireFromString("-600").Equal(out.TotalNPV), out.TotalNPV.String())
}

func TestPriceWithIndex(t *testing.T) {
	t.Parallel()

	in := pricing.Input{
		EvaluationDate: "2025-03-04",
		Curve:          curve(),
		Index:          "euribor6m",
		Fixings:        map[string]float64{"2025-03-03": 2.75},
		Trades: []pricing.TradeInput{
			{ID: "fixed", ValueDate: "2025-03-05", MaturityDate: "2025-09-01", Position: "LONG", StrikePct: 4, Notional: 1_000_000, UseIndexedCoupon: true},
			{ID: "approx", ValueDate: "2025-03-05", MaturityDate: "2025-09-01", Position: "LONG", StrikePct: 4, Notional: 1_000_000},
			{ID: "tenor", ValueDate: "2025-03-05", Position: "LONG", StrikePct: 4, Notional: 1_000_000},
		},
	}

	out, err := newPricer().Price(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out.Trades, 3)

	fixed := out.Trades[0]
	require.Empty(t, fixed.Error)
	assert.Equal(t, "RealizedFixing", fixed.Strategy)
	assert.Equal(t, "2025-03-03", fixed.FixingDate)
	assert.InDelta(t, 2.75, fixed.ForwardRatePct, 1e-9)
	wantAmount := 1_000_000 * (0.0275 - 0.04) * 0.5 / (1 + 0.0275*0.5)
	assert.InDelta(t, wantAmount, fixed.Amount.InexactFloat64(), 0.01)
	assert.InDelta(t, wantAmount*0.99, fixed.NPV.InexactFloat64(), 0.01)

	approx := out.Trades[1]
	require.Empty(t, approx.Error)
	assert.Equal(t, "IndexApproximation", approx.Strategy)
	assert.True(t, decimal.RequireFromString("600").Equal(approx.NPV))

	tenor := out.Trades[2]
	require.Empty(t, tenor.Error)
	assert.Equal(t, "2025-09-05", tenor.MaturityDate)
}

func TestPriceExpired(t *testing.T) {
	t.Parallel()

	in := pricing.Input{
		EvaluationDate: "2025-03-10",
		Curve:          curve(),
		Trades: []pricing.TradeInput{
			{ID: "old", ValueDate: "2025-03-05", MaturityDate: "2025-09-01", Position: "LONG", StrikePct: 4, Notional: 1_000_000, FixingDays: 2},
		},
	}
	out, err := newPricer().Price(context.Background(), in)
	require.NoError(t, err)
	got := out.Trades[0]
	assert.True(t, got.Expired)
	assert.True(t, got.NPV.IsZero())
	assert.InDelta(t, 4.1237113402, got.ForwardRatePct, 1e-9)
}

func TestPriceInputErrors(t *testing.T) {
	t.Parallel()

	flat := 3.0
	trade := pricing.TradeInput{ValueDate: "2025-03-05", MaturityDate: "2025-09-01", Position: "LONG", Notional: 1}
	cases := []struct {
		name string
		in   pricing.Input
		want string
	}{
		{"no curve", pricing.Input{Curve: pricing.CurveInput{ReferenceDate: "2025-03-03"}, Trades: []pricing.TradeInput{trade}}, "discount_factors or flat_rate"},
		{"both curves", pricing.Input{Curve: func() pricing.CurveInput { c := curve(); c.FlatRatePct = &flat; return c }(), Trades: []pricing.TradeInput{trade}}, "not both"},
		{"bad reference", pricing.Input{Curve: pricing.CurveInput{ReferenceDate: "3/3/2025"}}, "reference_date"},
		{"fixings without index", pricing.Input{Curve: curve(), Fixings: map[string]float64{"2025-03-03": 1}, Trades: []pricing.TradeInput{trade}}, "without an index"},
		{"unknown index", pricing.Input{Curve: curve(), Index: "LIBOR", Trades: []pricing.TradeInput{trade}}, "no preset"},
		{"no trades", pricing.Input{Curve: curve()}, "no trades"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := newPricer().Price(context.Background(), tc.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestPriceCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	flat := 3.0
	in := pricing.Input{
		Curve:  pricing.CurveInput{ReferenceDate: "2025-03-03", FlatRatePct: &flat},
		Trades: []pricing.TradeInput{{ValueDate: "2025-03-05", MaturityDate: "2025-09-01", Position: "LONG", Notional: 1}},
	}
	_, err := newPricer().Price(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenFixingStoreSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.DefaultConfig.Fixings
	cfg.Driver = "sqlite"
	cfg.DSN = filepath.Join(t.TempDir(), "fixings.db")

	store, closeStore, err := pricing.OpenFixingStore(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, closeStore()) })

	w, ok := store.(index.FixingWriter)
	require.True(t, ok)
	require.NoError(t, w.AddFixing("EURIBOR6M", utils.MustParseDate("2025-03-03"), 0.0275))

	in := pricing.Input{
		EvaluationDate: "2025-03-04",
		Curve:          curve(),
		Index:          "EURIBOR6M",
		Trades: []pricing.TradeInput{
			{ID: "fixed", ValueDate: "2025-03-05", MaturityDate: "2025-09-01", Position: "LONG", StrikePct: 4, Notional: 1_000_000, UseIndexedCoupon: true},
		},
	}
	out, err := pricing.NewPricer(config.DefaultConfig.Pricing, store, nil).Price(ctx, in)
	require.NoError(t, err)
	require.Empty(t, out.Trades[0].Error)
	assert.InDelta(t, 2.75, out.Trades[0].ForwardRatePct, 1e-9)
}

func TestOpenFixingStoreNone(t *testing.T) {
	t.Parallel()

	store, closeStore, err := pricing.OpenFixingStore(context.Background(), config.FixingsConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)
	assert.NoError(t, closeStore())

	_, _, err = pricing.OpenFixingStore(context.Background(), config.FixingsConfig{Driver: "oracle"})
	assert.Error(t, err)
}
