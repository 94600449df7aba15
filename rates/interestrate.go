// Package rates holds the InterestRate value used for strikes and implied forward rates.
package rates

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/fralib/market"
)

// Compounding selects how a rate accrues over time.
type Compounding int

const (
	Simple Compounding = iota
	Compounded
	Continuous
	// SimpleThenCompounded is simple up to one period and compounded beyond it.
	SimpleThenCompounded
)

func (c Compounding) String() string {
	switch c {
	case Simple:
		return "simple"
	case Compounded:
		return "compounded"
	case Continuous:
		return "continuous"
	case SimpleThenCompounded:
		return "simple-then-compounded"
	default:
		return fmt.Sprintf("Compounding(%d)", int(c))
	}
}

// Frequency is the number of compounding periods per year.
type Frequency int

const (
	Once       Frequency = 0
	Annual     Frequency = 1
	Semiannual Frequency = 2
	Quarterly  Frequency = 4
	Monthly    Frequency = 12
)

// InterestRate is an immutable rate with the conventions needed to turn it into factors.
//
// Rate is a decimal (0.025 == 2.5%).
type InterestRate struct {
	Rate        float64
	DayCount    market.DayCount
	Compounding Compounding
	Frequency   Frequency
}

// NewSimple returns a simply compounded single-period rate, the convention of FRA strikes and fixings.
func NewSimple(rate float64, dc market.DayCount) InterestRate {
	return InterestRate{Rate: rate, DayCount: dc, Compounding: Simple, Frequency: Once}
}

func (r InterestRate) validate() error {
	if (r.Compounding == Compounded || r.Compounding == SimpleThenCompounded) && r.Frequency <= 0 {
		return fmt.Errorf("InterestRate: %s compounding needs a positive frequency", r.Compounding)
	}
	return nil
}

// CompoundFactor returns the growth of one unit over t years.
func (r InterestRate) CompoundFactor(t float64) (float64, error) {
	if t < 0 {
		return 0, fmt.Errorf("CompoundFactor: negative time %v", t)
	}
	if err := r.validate(); err != nil {
		return 0, err
	}
	f := float64(r.Frequency)
	switch r.Compounding {
	case Simple:
		return 1 + r.Rate*t, nil
	case Compounded:
		return math.Pow(1+r.Rate/f, f*t), nil
	case Continuous:
		return math.Exp(r.Rate * t), nil
	case SimpleThenCompounded:
		if t <= 1/f {
			return 1 + r.Rate*t, nil
		}
		return math.Pow(1+r.Rate/f, f*t), nil
	default:
		return 0, fmt.Errorf("CompoundFactor: unknown compounding %d", r.Compounding)
	}
}

// DiscountFactor is the reciprocal of CompoundFactor.
func (r InterestRate) DiscountFactor(t float64) (float64, error) {
	c, err := r.CompoundFactor(t)
	if err != nil {
		return 0, err
	}
	return 1 / c, nil
}

// CompoundFactorBetween measures the accrual period between two dates with the rate's day count.
func (r InterestRate) CompoundFactorBetween(start, end time.Time) (float64, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("CompoundFactorBetween: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return r.CompoundFactor(r.DayCount.YearFraction(start, end))
}

// ImpliedRate returns the rate that produces compound over t years with the given conventions.
func ImpliedRate(compound float64, dc market.DayCount, comp Compounding, freq Frequency, t float64) (InterestRate, error) {
	if compound <= 0 {
		return InterestRate{}, fmt.Errorf("ImpliedRate: compound factor must be positive, got %v", compound)
	}
	out := InterestRate{DayCount: dc, Compounding: comp, Frequency: freq}
	if err := out.validate(); err != nil {
		return InterestRate{}, err
	}
	if compound == 1 {
		return out, nil
	}
	if t <= 0 {
		return InterestRate{}, fmt.Errorf("ImpliedRate: time must be positive, got %v", t)
	}
	f := float64(freq)
	switch comp {
	case Simple:
		out.Rate = (compound - 1) / t
	case Compounded:
		out.Rate = (math.Pow(compound, 1/(f*t)) - 1) * f
	case Continuous:
		out.Rate = math.Log(compound) / t
	case SimpleThenCompounded:
		if t <= 1/f {
			out.Rate = (compound - 1) / t
		} else {
			out.Rate = (math.Pow(compound, 1/(f*t)) - 1) * f
		}
	default:
		return InterestRate{}, fmt.Errorf("ImpliedRate: unknown compounding %d", comp)
	}
	return out, nil
}

// EquivalentRate re-expresses r under other conventions over the same t years.
func (r InterestRate) EquivalentRate(comp Compounding, freq Frequency, t float64) (InterestRate, error) {
	c, err := r.CompoundFactor(t)
	if err != nil {
		return InterestRate{}, err
	}
	return ImpliedRate(c, r.DayCount, comp, freq, t)
}

func (r InterestRate) String() string {
	s := fmt.Sprintf("%.6f%% %s %s", r.Rate*100, r.DayCount, r.Compounding)
	if r.Compounding == Compounded || r.Compounding == SimpleThenCompounded {
		s += fmt.Sprintf(" %d/yr", int(r.Frequency))
	}
	return s
}
