package termstructure

import (
	"fmt"
	"sync"
	"time"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/rates"
	"github.com/meenmo/fralib/utils"
)

// FlatForward discounts every date with a single rate.
type FlatForward struct {
	observer.Subject

	mu        sync.RWMutex
	reference time.Time
	rate      rates.InterestRate
	cal       calendar.CalendarID
}

// NewFlatForward builds a flat curve. The rate's day count is also the curve day count.
func NewFlatForward(reference time.Time, rate rates.InterestRate, cal calendar.CalendarID) *FlatForward {
	return &FlatForward{reference: utils.Truncate(reference), rate: rate, cal: cal}
}

// SetRate replaces the rate and notifies observers.
func (f *FlatForward) SetRate(r float64) {
	f.mu.Lock()
	changed := f.rate.Rate != r
	f.rate.Rate = r
	f.mu.Unlock()
	if changed {
		f.Notify()
	}
}

// Rate returns the current rate.
func (f *FlatForward) Rate() rates.InterestRate {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rate
}

func (f *FlatForward) Discount(t time.Time) (float64, error) {
	t = utils.Truncate(t)
	if t.Before(f.reference) {
		return 0, fmt.Errorf("Discount %s: %w", t.Format(utils.DateLayout), ErrBeforeReference)
	}
	r := f.Rate()
	return r.DiscountFactor(r.DayCount.YearFraction(f.reference, t))
}

func (f *FlatForward) DayCount() market.DayCount     { return f.Rate().DayCount }
func (f *FlatForward) Calendar() calendar.CalendarID { return f.cal }
func (f *FlatForward) ReferenceDate() time.Time      { return f.reference }
