// Package index implements term floating-rate indices (IBOR style) and their fixing stores.
package index

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/settings"
	"github.com/meenmo/fralib/termstructure"
	"github.com/meenmo/fralib/utils"
)

var (
	// ErrMissingFixing is returned when a past fixing is not in the fixing store.
	ErrMissingFixing = errors.New("missing fixing")
	// ErrNoForwardingCurve is returned when a fixing must be forecast but no curve is linked.
	ErrNoForwardingCurve = errors.New("no forwarding curve")
	// ErrInvalidFixingDate is returned for fixing dates that are not business days.
	ErrInvalidFixingDate = errors.New("invalid fixing date")
)

// IborIndexParams defines an index. Name, Tenor, Calendar and DayCount are required.
type IborIndexParams struct {
	Name                  market.ReferenceIndex
	Tenor                 market.Period
	FixingDays            int
	Calendar              calendar.CalendarID
	BusinessDayConvention calendar.BusinessDayConvention
	EndOfMonth            bool
	DayCount              market.DayCount

	// ForwardingCurve projects fixings that are not yet published. Optional.
	ForwardingCurve termstructure.YieldCurve
	// Fixings holds published fixings. Defaults to an empty MapFixingStore.
	Fixings FixingStore
	// Context decides which fixing dates are in the past. Defaults to settings.Default().
	Context *settings.Context
}

// IborIndex is a term rate published FixingDays before the start of its accrual period.
type IborIndex struct {
	observer.Subject

	name       market.ReferenceIndex
	tenor      market.Period
	fixingDays int
	cal        calendar.CalendarID
	bdc        calendar.BusinessDayConvention
	endOfMonth bool
	dayCount   market.DayCount
	forwarding termstructure.YieldCurve
	fixings    FixingStore
	ctx        *settings.Context

	subs observer.Group
}

// NewIborIndex validates params and subscribes the index to its forwarding curve and fixing store.
func NewIborIndex(p IborIndexParams) (*IborIndex, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("NewIborIndex: Name is required")
	}
	if market.IsOvernight(p.Name) {
		return nil, fmt.Errorf("NewIborIndex: %s is an overnight index", p.Name)
	}
	if p.Tenor.Length <= 0 {
		return nil, fmt.Errorf("NewIborIndex: %s: Tenor must be positive", p.Name)
	}
	if p.FixingDays < 0 {
		return nil, fmt.Errorf("NewIborIndex: %s: FixingDays must be >= 0", p.Name)
	}
	if p.Calendar == "" {
		return nil, fmt.Errorf("NewIborIndex: %s: Calendar is required", p.Name)
	}
	if p.DayCount == "" {
		return nil, fmt.Errorf("NewIborIndex: %s: DayCount is required", p.Name)
	}
	if p.BusinessDayConvention == "" {
		p.BusinessDayConvention = calendar.ModifiedFollowing
	}
	if isNilInterface(p.ForwardingCurve) {
		p.ForwardingCurve = nil
	}
	if isNilInterface(p.Fixings) {
		p.Fixings = NewMapFixingStore()
	}
	if p.Context == nil {
		p.Context = settings.Default()
	}

	idx := &IborIndex{
		name:       p.Name,
		tenor:      p.Tenor,
		fixingDays: p.FixingDays,
		cal:        p.Calendar,
		bdc:        p.BusinessDayConvention,
		endOfMonth: p.EndOfMonth,
		dayCount:   p.DayCount,
		forwarding: p.ForwardingCurve,
		fixings:    p.Fixings,
		ctx:        p.Context,
	}
	forward := observer.ObserverFunc(idx.Notify)
	if idx.forwarding != nil {
		idx.subs.Watch(idx.forwarding, forward)
	}
	if src, ok := idx.fixings.(observer.Observable); ok {
		idx.subs.Watch(src, forward)
	}
	return idx, nil
}

// isNilInterface reports whether v is nil or an interface holding a nil pointer.
func isNilInterface(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// Name is the index family plus tenor, e.g. EURIBOR6M.
func (i *IborIndex) Name() string                                          { return string(i.name) }
func (i *IborIndex) Tenor() market.Period                                  { return i.tenor }
func (i *IborIndex) FixingDays() int                                       { return i.fixingDays }
func (i *IborIndex) FixingCalendar() calendar.CalendarID                   { return i.cal }
func (i *IborIndex) BusinessDayConvention() calendar.BusinessDayConvention { return i.bdc }
func (i *IborIndex) EndOfMonth() bool                                      { return i.endOfMonth }
func (i *IborIndex) DayCount() market.DayCount                             { return i.dayCount }

// ForwardingCurve returns the projection curve, or nil when none was given.
func (i *IborIndex) ForwardingCurve() termstructure.YieldCurve { return i.forwarding }

// FixingDate is the publication date for an accrual period starting on valueDate.
func (i *IborIndex) FixingDate(valueDate time.Time) time.Time {
	return calendar.Advance(i.cal, valueDate, -i.fixingDays, calendar.Days, calendar.Preceding, false)
}

// ValueDate is the start of the accrual period fixed on fixingDate.
func (i *IborIndex) ValueDate(fixingDate time.Time) time.Time {
	return calendar.Advance(i.cal, fixingDate, i.fixingDays, calendar.Days, calendar.Following, false)
}

// MaturityDate is the end of the accrual period starting on valueDate.
func (i *IborIndex) MaturityDate(valueDate time.Time) time.Time {
	return calendar.Advance(i.cal, valueDate, i.tenor.Length, i.tenor.Unit, i.bdc, i.endOfMonth)
}

// IsValidFixingDate reports whether fixings can be published on d.
func (i *IborIndex) IsValidFixingDate(d time.Time) bool {
	return calendar.IsBusinessDay(i.cal, d)
}

// Fixing returns the rate fixed on fixingDate.
//
// Dates before the evaluation date must be in the fixing store. On the evaluation date a
// stored fixing is used if present and forecast otherwise. Later dates are forecast off
// the forwarding curve.
func (i *IborIndex) Fixing(fixingDate time.Time) (float64, error) {
	fixingDate = utils.Truncate(fixingDate)
	if !i.IsValidFixingDate(fixingDate) {
		return 0, fmt.Errorf("%s fixing %s: %w", i.name, fixingDate.Format(utils.DateLayout), ErrInvalidFixingDate)
	}

	today := i.ctx.EvaluationDate()
	if !fixingDate.After(today) {
		rate, ok, err := i.fixings.Fixing(string(i.name), fixingDate)
		if err != nil {
			return 0, fmt.Errorf("%s fixing %s: %w", i.name, fixingDate.Format(utils.DateLayout), err)
		}
		if ok {
			return rate, nil
		}
		if fixingDate.Before(today) {
			return 0, fmt.Errorf("%s fixing %s: %w", i.name, fixingDate.Format(utils.DateLayout), ErrMissingFixing)
		}
	}
	return i.ForecastFixing(fixingDate)
}

// ForecastFixing projects the fixing off the forwarding curve as a simple rate over the
// index accrual period.
func (i *IborIndex) ForecastFixing(fixingDate time.Time) (float64, error) {
	if i.forwarding == nil {
		return 0, fmt.Errorf("%s forecast %s: %w", i.name, fixingDate.Format(utils.DateLayout), ErrNoForwardingCurve)
	}
	start := i.ValueDate(fixingDate)
	end := i.MaturityDate(start)
	p1, err := i.forwarding.Discount(start)
	if err != nil {
		return 0, fmt.Errorf("%s forecast: %w", i.name, err)
	}
	p2, err := i.forwarding.Discount(end)
	if err != nil {
		return 0, fmt.Errorf("%s forecast: %w", i.name, err)
	}
	return (p1/p2 - 1) / i.dayCount.YearFraction(start, end), nil
}

// AddFixing publishes a fixing when the underlying store accepts writes.
func (i *IborIndex) AddFixing(fixingDate time.Time, rate float64) error {
	w, ok := i.fixings.(FixingWriter)
	if !ok {
		return errReadOnly(string(i.name))
	}
	if !i.IsValidFixingDate(fixingDate) {
		return fmt.Errorf("AddFixing: %s %s: %w", i.name, fixingDate.Format(utils.DateLayout), ErrInvalidFixingDate)
	}
	return w.AddFixing(string(i.name), utils.Truncate(fixingDate), rate)
}

// Close drops the subscriptions to the forwarding curve and fixing store.
func (i *IborIndex) Close() {
	i.subs.CancelAll()
}
