package fra

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/rates"
	"github.com/meenmo/fralib/termstructure"
	"github.com/meenmo/fralib/utils"
)

// Strategy selects how the forward rate is obtained. It is fixed at construction.
type Strategy int

const (
	// RealizedFixing uses the index fixing on the FRA fixing date.
	RealizedFixing Strategy = iota
	// IndexApproximation implies the rate from the index forwarding curve over the FRA period.
	IndexApproximation
	// CurveImplied implies the rate from the discount curve over the FRA period.
	CurveImplied
)

func (s Strategy) String() string {
	switch s {
	case RealizedFixing:
		return "RealizedFixing"
	case IndexApproximation:
		return "IndexApproximation"
	case CurveImplied:
		return "CurveImplied"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ImpliedForwardRate is the simple rate r with 1 + r*tau = D(start)/D(end), tau measured
// with dc.
func ImpliedForwardRate(curve termstructure.YieldCurve, dc market.DayCount, start, end time.Time) (rates.InterestRate, error) {
	if isNilInterface(curve) {
		return rates.InterestRate{}, fmt.Errorf("ImpliedForwardRate: %w", ErrMissingCurve)
	}
	tau := dc.YearFraction(start, end)
	if !(tau > 0) {
		return rates.InterestRate{}, fmt.Errorf("ImpliedForwardRate: non-positive accrual %v between %s and %s (%s)",
			tau, start.Format(utils.DateLayout), end.Format(utils.DateLayout), dc)
	}
	p1, err := curve.Discount(start)
	if err != nil {
		return rates.InterestRate{}, fmt.Errorf("ImpliedForwardRate: %w", err)
	}
	p2, err := curve.Discount(end)
	if err != nil {
		return rates.InterestRate{}, fmt.Errorf("ImpliedForwardRate: %w", err)
	}
	return rates.NewSimple((p1/p2-1)/tau, dc), nil
}

// SettlementAmount is the FRA payoff on the value date:
//
//	notional * sign * (F - K) * T / (1 + F*T)
//
// with T the accrual of forward between start and end under its own day count.
func SettlementAmount(position market.Position, notional float64, forward rates.InterestRate, strike float64, start, end time.Time) float64 {
	t := forward.DayCount.YearFraction(start, end)
	f := forward.Rate
	return notional * position.Sign() * (f - strike) * t / (1 + f*t)
}

// discountingCurve is the explicit discount curve, or the index forwarding curve.
func (f *FRA) discountingCurve() termstructure.YieldCurve {
	if f.discountCurve != nil {
		return f.discountCurve
	}
	if f.index != nil {
		return f.index.ForwardingCurve()
	}
	return nil
}

func (f *FRA) calculateForwardRate() (rates.InterestRate, error) {
	switch f.strategy {
	case RealizedFixing:
		fd := f.FixingDate()
		rate, err := f.index.Fixing(fd)
		if err != nil {
			return rates.InterestRate{}, err
		}
		return rates.NewSimple(rate, f.index.DayCount()), nil
	case IndexApproximation:
		curve := f.index.ForwardingCurve()
		if isNilInterface(curve) {
			return rates.InterestRate{}, fmt.Errorf("%s forwarding curve: %w", f.index.Name(), ErrMissingCurve)
		}
		return ImpliedForwardRate(curve, f.index.DayCount(), f.valueDate, f.maturityDate)
	case CurveImplied:
		return ImpliedForwardRate(f.discountCurve, f.discountCurve.DayCount(), f.valueDate, f.maturityDate)
	default:
		return rates.InterestRate{}, fmt.Errorf("unknown strategy %s", f.strategy)
	}
}

// calculate produces one consistent Results. Once the value date has occurred the amount,
// NPV and error estimate are zero but the forward rate is still reported.
func (f *FRA) calculate() (Results, error) {
	res := Results{ValuationDate: f.ctx.EvaluationDate()}

	fwd, err := f.calculateForwardRate()
	if err != nil {
		f.log.WithError(err).Warn("forward rate calculation failed")
		return Results{}, fmt.Errorf("FRA %s-%s: %w",
			f.valueDate.Format(utils.DateLayout), f.maturityDate.Format(utils.DateLayout), err)
	}
	res.ForwardRate = fwd

	if f.IsExpired() {
		res.Expired = true
		f.log.WithField("forward", fwd.Rate).Debug("FRA expired")
		return res, nil
	}

	curve := f.discountingCurve()
	if isNilInterface(curve) {
		return Results{}, fmt.Errorf("FRA: %w", ErrNoDiscountingSource)
	}
	df, err := curve.Discount(f.valueDate)
	if err != nil {
		f.log.WithError(err).Warn("discounting failed")
		return Results{}, fmt.Errorf("FRA discount %s: %w", f.valueDate.Format(utils.DateLayout), err)
	}

	res.Amount = SettlementAmount(f.position, f.notional, fwd, f.strike.Rate, f.valueDate, f.maturityDate)
	res.NPV = res.Amount * df
	f.log.WithFields(logrus.Fields{
		"forward":  fwd.Rate,
		"amount":   res.Amount,
		"discount": df,
		"npv":      res.NPV,
	}).Debug("FRA recalculated")
	return res, nil
}
