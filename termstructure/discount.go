package termstructure

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/utils"
)

// curveTimeBasis is the time axis used for interpolation, regardless of the curve's
// quoting day count.
const curveTimeBasis = market.Act365F

// InterpolatedDiscountCurve interpolates log-linearly between discount-factor nodes.
// Beyond the last node the last forward rate is extended.
type InterpolatedDiscountCurve struct {
	observer.Subject

	mu        sync.RWMutex
	reference time.Time
	dayCount  market.DayCount
	cal       calendar.CalendarID
	dates     []time.Time
	dfs       map[time.Time]float64
}

// NewInterpolatedDiscountCurve creates a curve from explicitly provided discount factors.
// A node of 1.0 is added at the reference date when missing.
func NewInterpolatedDiscountCurve(reference time.Time, dfs map[time.Time]float64, dc market.DayCount, cal calendar.CalendarID) (*InterpolatedDiscountCurve, error) {
	reference = utils.Truncate(reference)
	c := &InterpolatedDiscountCurve{
		reference: reference,
		dayCount:  dc,
		cal:       cal,
		dfs:       make(map[time.Time]float64, len(dfs)+1),
	}
	for t, df := range dfs {
		t = utils.Truncate(t)
		if err := c.checkNode(t, df); err != nil {
			return nil, fmt.Errorf("NewInterpolatedDiscountCurve: %w", err)
		}
		c.dfs[t] = df
	}
	if _, ok := c.dfs[reference]; !ok {
		c.dfs[reference] = 1.0
	}
	c.rebuildDates()
	return c, nil
}

func (c *InterpolatedDiscountCurve) checkNode(t time.Time, df float64) error {
	if t.Before(c.reference) {
		return fmt.Errorf("node %s: %w", t.Format(utils.DateLayout), ErrBeforeReference)
	}
	if !(df > 0) || math.IsInf(df, 0) {
		return fmt.Errorf("node %s: discount factor must be positive, got %v", t.Format(utils.DateLayout), df)
	}
	return nil
}

func (c *InterpolatedDiscountCurve) rebuildDates() {
	c.dates = c.dates[:0]
	for t := range c.dfs {
		c.dates = append(c.dates, t)
	}
	utils.SortDates(c.dates)
}

// SetNode inserts or replaces a node and notifies observers.
func (c *InterpolatedDiscountCurve) SetNode(t time.Time, df float64) error {
	t = utils.Truncate(t)
	c.mu.Lock()
	if err := c.checkNode(t, df); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("SetNode: %w", err)
	}
	c.dfs[t] = df
	c.rebuildDates()
	c.mu.Unlock()

	c.Notify()
	return nil
}

// Discount returns the discount factor for t.
func (c *InterpolatedDiscountCurve) Discount(t time.Time) (float64, error) {
	t = utils.Truncate(t)
	c.mu.RLock()
	defer c.mu.RUnlock()

	if t.Before(c.reference) {
		return 0, fmt.Errorf("Discount %s: %w", t.Format(utils.DateLayout), ErrBeforeReference)
	}
	if df, ok := c.dfs[t]; ok {
		return df, nil
	}
	if len(c.dates) < 2 {
		return c.dfs[c.dates[0]], nil
	}

	d1, d2 := utils.AdjacentDates(t, c.dates)
	df1, df2 := c.dfs[d1], c.dfs[d2]
	t1 := curveTimeBasis.YearFraction(c.reference, d1)
	t2 := curveTimeBasis.YearFraction(c.reference, d2)
	tt := curveTimeBasis.YearFraction(c.reference, t)
	if t2 == t1 {
		return df1, nil
	}
	forwardRate := math.Log(df1/df2) / (t2 - t1)
	return df1 * math.Exp(-forwardRate*(tt-t1)), nil
}

func (c *InterpolatedDiscountCurve) DayCount() market.DayCount     { return c.dayCount }
func (c *InterpolatedDiscountCurve) Calendar() calendar.CalendarID { return c.cal }
func (c *InterpolatedDiscountCurve) ReferenceDate() time.Time      { return c.reference }

// Nodes returns a copy of the curve nodes.
func (c *InterpolatedDiscountCurve) Nodes() map[time.Time]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[time.Time]float64, len(c.dfs))
	for t, df := range c.dfs {
		out[t] = df
	}
	return out
}
