// Package pricing prices a batch of FRAs described by a JSON document.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/config"
	"github.com/meenmo/fralib/index"
	"github.com/meenmo/fralib/instruments/fra"
	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/rates"
	"github.com/meenmo/fralib/settings"
	"github.com/meenmo/fralib/termstructure"
	"github.com/meenmo/fralib/utils"
)

// Input defines the JSON input schema.
//
// Conventions:
// - rates are in percent (e.g., 2.50 means 2.50%)
// - dates are YYYY-MM-DD
type Input struct {
	// EvaluationDate overrides pricing.evaluation_date. Defaults to the curve reference date.
	EvaluationDate string `json:"evaluation_date"`

	Curve CurveInput `json:"curve"`

	// Index is a preset name (EURIBOR3M, EURIBOR6M, TIBOR3M, TIBOR6M, CD91D). When empty
	// every trade is priced off the curve alone.
	Index string `json:"index"`

	// Fixings are published index fixings in percent, keyed by fixing date. When empty the
	// configured fixing store is used.
	Fixings map[string]float64 `json:"fixings"`

	Trades []TradeInput `json:"trades"`
}

// CurveInput is either discount factors or a single flat rate.
type CurveInput struct {
	ReferenceDate   string             `json:"reference_date"`
	DayCount        string             `json:"day_count"` // default ACT/365F
	Calendar        string             `json:"calendar"`  // default pricing.calendar
	DiscountFactors map[string]float64 `json:"discount_factors"`
	FlatRatePct     *float64           `json:"flat_rate"` // continuously compounded
}

type TradeInput struct {
	ID           string `json:"id"`
	ValueDate    string `json:"value_date"`
	MaturityDate string `json:"maturity_date"` // optional with an index: index tenor

	// Position is LONG (BUY) or SHORT (SELL).
	Position         string  `json:"position"`
	StrikePct        float64 `json:"strike"`
	Notional         float64 `json:"notional"`
	UseIndexedCoupon bool    `json:"use_indexed_coupon"`

	// Curve-only trades.
	FixingDays            int    `json:"fixing_days"`
	BusinessDayConvention string `json:"business_day_convention"`
}

type TradeOutput struct {
	ID             string          `json:"id,omitempty"`
	Strategy       string          `json:"strategy,omitempty"`
	FixingDate     string          `json:"fixing_date,omitempty"`
	ValueDate      string          `json:"value_date,omitempty"`
	MaturityDate   string          `json:"maturity_date,omitempty"`
	ForwardRatePct float64         `json:"forward_rate"`
	Amount         decimal.Decimal `json:"amount"`
	NPV            decimal.Decimal `json:"npv"`
	Expired        bool            `json:"expired"`
	Error          string          `json:"error,omitempty"`
}

type Output struct {
	EvaluationDate string          `json:"evaluation_date"`
	Trades         []TradeOutput   `json:"trades"`
	TotalNPV       decimal.Decimal `json:"total_npv"`
	Error          string          `json:"error,omitempty"`
}

// Pricer prices Inputs under one configuration. It is safe for concurrent use.
type Pricer struct {
	cfg     config.PricingConfig
	fixings index.FixingStore
	log     *logrus.Entry
}

// NewPricer returns a Pricer. fixings is used when an Input carries no inline fixings and
// may be nil.
func NewPricer(cfg config.PricingConfig, fixings index.FixingStore, log *logrus.Entry) *Pricer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pricer{cfg: cfg, fixings: fixings, log: log}
}

// market data shared by the trades of one Input.
type marketData struct {
	ctx   *settings.Context
	curve termstructure.YieldCurve
	idx   *index.IborIndex
}

// Price values every trade. Input-level problems fail the whole batch; a trade that
// cannot be priced reports its own error and is left out of the total.
func (p *Pricer) Price(ctx context.Context, in Input) (*Output, error) {
	md, err := p.buildMarket(in)
	if err != nil {
		return nil, err
	}
	if md.idx != nil {
		defer md.idx.Close()
	}
	if len(in.Trades) == 0 {
		return nil, fmt.Errorf("no trades")
	}

	out := &Output{
		EvaluationDate: md.ctx.EvaluationDate().Format(utils.DateLayout),
		Trades:         make([]TradeOutput, len(in.Trades)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, trade := range in.Trades {
		i, trade := i, trade
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out.Trades[i] = p.priceTrade(md, trade)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, t := range out.Trades {
		if t.Error == "" {
			total = total.Add(t.NPV)
		}
	}
	out.TotalNPV = total
	return out, nil
}

func (p *Pricer) buildMarket(in Input) (*marketData, error) {
	ref, err := utils.ParseDate(in.Curve.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("invalid curve.reference_date: %v", err)
	}

	calName := in.Curve.Calendar
	if calName == "" {
		calName = p.cfg.Calendar
	}
	cal := calendar.CalendarID(strings.ToUpper(strings.TrimSpace(calName)))

	dc := market.Act365F
	if in.Curve.DayCount != "" {
		if dc, err = market.ParseDayCount(in.Curve.DayCount); err != nil {
			return nil, err
		}
	}

	var curve termstructure.YieldCurve
	switch {
	case in.Curve.FlatRatePct != nil && len(in.Curve.DiscountFactors) > 0:
		return nil, fmt.Errorf("curve: give either discount_factors or flat_rate, not both")
	case in.Curve.FlatRatePct != nil:
		rate := rates.InterestRate{Rate: *in.Curve.FlatRatePct / 100, DayCount: dc, Compounding: rates.Continuous}
		curve = termstructure.NewFlatForward(ref, rate, cal)
	case len(in.Curve.DiscountFactors) > 0:
		dfs := make(map[time.Time]float64, len(in.Curve.DiscountFactors))
		for s, df := range in.Curve.DiscountFactors {
			d, err := utils.ParseDate(s)
			if err != nil {
				return nil, fmt.Errorf("curve.discount_factors: %v", err)
			}
			dfs[d] = df
		}
		c, err := termstructure.NewInterpolatedDiscountCurve(ref, dfs, dc, cal)
		if err != nil {
			return nil, err
		}
		curve = c
	default:
		return nil, fmt.Errorf("curve: discount_factors or flat_rate is required")
	}

	ctx := settings.New()
	ctx.SetIncludeReferenceDateEvents(p.cfg.IncludeReferenceDateEvents)
	evalStr := in.EvaluationDate
	if evalStr == "" {
		evalStr = p.cfg.EvaluationDate
	}
	evalDate := ref
	if evalStr != "" {
		if evalDate, err = utils.ParseDate(evalStr); err != nil {
			return nil, fmt.Errorf("invalid evaluation_date: %v", err)
		}
	}
	ctx.SetEvaluationDate(evalDate)

	md := &marketData{ctx: ctx, curve: curve}
	if in.Index == "" {
		if len(in.Fixings) > 0 {
			return nil, fmt.Errorf("fixings given without an index")
		}
		return md, nil
	}

	name := market.ReferenceIndex(strings.ToUpper(strings.TrimSpace(in.Index)))
	store := p.fixings
	if len(in.Fixings) > 0 {
		series := make(map[string]float64, len(in.Fixings))
		for s, pct := range in.Fixings {
			d, err := utils.ParseDate(s)
			if err != nil {
				return nil, fmt.Errorf("fixings: %v", err)
			}
			series[d.Format(utils.DateLayout)] = pct / 100
		}
		store = index.NewMapFixingStoreFrom(map[string]map[string]float64{string(name): series})
	}
	idx, err := index.FromPreset(name, curve, store, ctx)
	if err != nil {
		return nil, err
	}
	md.idx = idx
	return md, nil
}

func (p *Pricer) priceTrade(md *marketData, in TradeInput) TradeOutput {
	out := TradeOutput{ID: in.ID}
	log := p.log.WithField("trade_id", in.ID)

	f, err := p.newFRA(md, in, log)
	if err != nil {
		out.Error = err.Error()
		log.WithError(err).Warn("invalid trade")
		return out
	}
	defer f.Close()

	out.Strategy = f.Strategy().String()
	out.FixingDate = f.FixingDate().Format(utils.DateLayout)
	out.ValueDate = f.ValueDate().Format(utils.DateLayout)
	out.MaturityDate = f.MaturityDate().Format(utils.DateLayout)

	res, err := f.Results()
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.ForwardRatePct = utils.RoundTo(res.ForwardRate.Rate*100, 10)
	out.Amount = decimal.NewFromFloat(res.Amount).Round(p.cfg.AmountDecimals)
	out.NPV = decimal.NewFromFloat(res.NPV).Round(p.cfg.AmountDecimals)
	out.Expired = res.Expired
	return out
}

func (p *Pricer) newFRA(md *marketData, in TradeInput, log *logrus.Entry) (*fra.FRA, error) {
	valueDate, err := utils.ParseDate(in.ValueDate)
	if err != nil {
		return nil, fmt.Errorf("invalid value_date: %v", err)
	}
	position, err := market.ParsePosition(in.Position)
	if err != nil {
		return nil, err
	}
	terms := fra.Terms{
		ValueDate:         valueDate,
		Position:          position,
		StrikeForwardRate: in.StrikePct / 100,
		Notional:          in.Notional,
	}
	opts := []fra.Option{fra.WithEvaluationContext(md.ctx), fra.WithLogger(log)}

	if in.MaturityDate == "" {
		if md.idx == nil {
			return nil, fmt.Errorf("maturity_date is required without an index")
		}
		return fra.NewWithIndexTenor(terms, md.idx, nil, in.UseIndexedCoupon, opts...)
	}
	if terms.MaturityDate, err = utils.ParseDate(in.MaturityDate); err != nil {
		return nil, fmt.Errorf("invalid maturity_date: %v", err)
	}
	if md.idx != nil {
		return fra.NewWithIndex(terms, md.idx, nil, in.UseIndexedCoupon, opts...)
	}
	if in.UseIndexedCoupon {
		return nil, fmt.Errorf("use_indexed_coupon requires an index")
	}
	bdc := calendar.BusinessDayConvention(strings.ToUpper(strings.TrimSpace(in.BusinessDayConvention)))
	return fra.NewWithCurve(terms, md.curve, in.FixingDays, bdc, opts...)
}
