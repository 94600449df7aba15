// Package fra prices forward rate agreements.
//
// An FRA holds its contract terms and non-owning references to an index and/or a discount
// curve. Results are computed lazily on the first query and cached until the evaluation
// date, the discount curve or the index notifies a change.
package fra

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/lazy"
	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/observer"
	"github.com/meenmo/fralib/rates"
	"github.com/meenmo/fralib/settings"
	"github.com/meenmo/fralib/termstructure"
	"github.com/meenmo/fralib/utils"
)

var (
	// ErrNonPositiveNotional is returned when the notional is zero or negative.
	ErrNonPositiveNotional = errors.New("notional must be positive")
	// ErrValueDateNotBeforeMaturity is returned when the adjusted maturity is not after the value date.
	ErrValueDateNotBeforeMaturity = errors.New("value date must be earlier than maturity date")
	// ErrNoDiscountingSource is returned when neither a discount curve nor an index curve can discount.
	ErrNoDiscountingSource = errors.New("no discounting source")
	// ErrNilIndex is returned by the index constructors when the index is nil.
	ErrNilIndex = errors.New("nil index")
	// ErrInvalidPosition is returned for positions other than Long and Short.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrMissingCurve is returned at calculation time when the selected strategy has no curve.
	ErrMissingCurve = errors.New("missing curve")
)

// Index is what an FRA needs from a floating-rate index.
type Index interface {
	observer.Observable
	Name() string
	FixingDate(valueDate time.Time) time.Time
	MaturityDate(valueDate time.Time) time.Time
	Fixing(fixingDate time.Time) (float64, error)
	ForwardingCurve() termstructure.YieldCurve
	DayCount() market.DayCount
	FixingCalendar() calendar.CalendarID
	BusinessDayConvention() calendar.BusinessDayConvention
}

// Calendar is what an FRA needs from a holiday calendar.
type Calendar interface {
	Adjust(t time.Time, bdc calendar.BusinessDayConvention) time.Time
	Advance(t time.Time, n int, unit calendar.TimeUnit, bdc calendar.BusinessDayConvention) time.Time
}

// EvaluationContext supplies "today" and notifies when it moves.
type EvaluationContext interface {
	observer.Observable
	EvaluationDate() time.Time
	HasOccurred(d time.Time) bool
}

// Terms are the static contract terms shared by every constructor.
//
// StrikeForwardRate is a decimal (0.04 == 4%).
type Terms struct {
	ValueDate         time.Time
	MaturityDate      time.Time
	Position          market.Position
	StrikeForwardRate float64
	Notional          float64
}

// Results is one consistent set of outputs of a calculation.
type Results struct {
	ForwardRate   rates.InterestRate
	Amount        float64
	NPV           float64
	ErrorEstimate float64
	Expired       bool
	ValuationDate time.Time
}

type options struct {
	ctx    EvaluationContext
	logger *logrus.Entry
}

// Option customizes an FRA.
type Option func(*options)

// WithEvaluationContext prices against ctx instead of settings.Default().
func WithEvaluationContext(ctx EvaluationContext) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithLogger sets the logger used for calculation traces.
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.logger = l }
}

// FRA is a forward rate agreement on a single accrual period.
type FRA struct {
	observer.Subject

	position         market.Position
	notional         float64
	strike           rates.InterestRate
	index            Index
	discountCurve    termstructure.YieldCurve
	useIndexedCoupon bool
	strategy         Strategy

	dayCount     market.DayCount
	cal          calendar.CalendarID
	bdc          calendar.BusinessDayConvention
	valueDate    time.Time
	maturityDate time.Time
	fixingDays   int

	ctx   EvaluationContext
	log   *logrus.Entry
	cache *lazy.Value[Results]
	subs  observer.Group
}

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

// NewWithIndex builds an FRA whose conventions come from idx. The maturity date is adjusted
// with the index calendar and convention. When discountCurve is nil the index forwarding
// curve discounts. With useIndexedCoupon the forward rate is the index fixing; otherwise
// it is implied from the index forwarding curve.
func NewWithIndex(terms Terms, idx Index, discountCurve termstructure.YieldCurve, useIndexedCoupon bool, opts ...Option) (*FRA, error) {
	if isNilInterface(idx) {
		return nil, fmt.Errorf("NewWithIndex: %w", ErrNilIndex)
	}
	if isNilInterface(discountCurve) {
		discountCurve = nil
	}

	f := &FRA{
		position:         terms.Position,
		notional:         terms.Notional,
		index:            idx,
		discountCurve:    discountCurve,
		useIndexedCoupon: useIndexedCoupon,
		strategy:         IndexApproximation,
		dayCount:         idx.DayCount(),
		cal:              idx.FixingCalendar(),
		bdc:              idx.BusinessDayConvention(),
		valueDate:        utils.Truncate(terms.ValueDate),
	}
	if useIndexedCoupon {
		f.strategy = RealizedFixing
	}
	f.maturityDate = f.cal.Adjust(utils.Truncate(terms.MaturityDate), f.bdc)

	var result *multierror.Error
	result = multierror.Append(result, f.checkTerms()...)
	if discountCurve == nil && isNilInterface(idx.ForwardingCurve()) {
		result = multierror.Append(result, fmt.Errorf("%w: %s has no forwarding curve and no discount curve was given", ErrNoDiscountingSource, idx.Name()))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("NewWithIndex: %w", err)
	}

	f.strike = rates.NewSimple(terms.StrikeForwardRate, idx.DayCount())
	f.init(opts)
	f.subs.Watch(f.discountCurve, f)
	f.subs.Watch(idx, f)
	return f, nil
}

// NewWithIndexTenor is NewWithIndex with the maturity set to the end of the index tenor
// starting on the value date. terms.MaturityDate is ignored.
func NewWithIndexTenor(terms Terms, idx Index, discountCurve termstructure.YieldCurve, useIndexedCoupon bool, opts ...Option) (*FRA, error) {
	if isNilInterface(idx) {
		return nil, fmt.Errorf("NewWithIndexTenor: %w", ErrNilIndex)
	}
	terms.MaturityDate = idx.MaturityDate(utils.Truncate(terms.ValueDate))
	return NewWithIndex(terms, idx, discountCurve, useIndexedCoupon, opts...)
}

// NewWithCurve builds an FRA without an index. The forward rate is implied from
// discountCurve, which also discounts and supplies the day count and calendar. The fixing
// date is fixingDays business days before the value date. An empty bdc means Modified
// Following.
func NewWithCurve(terms Terms, discountCurve termstructure.YieldCurve, fixingDays int, bdc calendar.BusinessDayConvention, opts ...Option) (*FRA, error) {
	if isNilInterface(discountCurve) {
		return nil, fmt.Errorf("NewWithCurve: %w: discount curve is required", ErrNoDiscountingSource)
	}
	if bdc == "" {
		bdc = calendar.ModifiedFollowing
	}
	dc := discountCurve.DayCount()
	if dc == "" {
		return nil, fmt.Errorf("NewWithCurve: %w: discount curve is empty", ErrNoDiscountingSource)
	}

	f := &FRA{
		position:      terms.Position,
		notional:      terms.Notional,
		discountCurve: discountCurve,
		strategy:      CurveImplied,
		dayCount:      dc,
		cal:           discountCurve.Calendar(),
		bdc:           bdc,
		valueDate:     utils.Truncate(terms.ValueDate),
		fixingDays:    fixingDays,
	}
	f.maturityDate = f.cal.Adjust(utils.Truncate(terms.MaturityDate), f.bdc)

	var result *multierror.Error
	result = multierror.Append(result, f.checkTerms()...)
	if fixingDays < 0 {
		result = multierror.Append(result, fmt.Errorf("fixing days must be >= 0, got %d", fixingDays))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("NewWithCurve: %w", err)
	}

	f.strike = rates.NewSimple(terms.StrikeForwardRate, dc)
	f.init(opts)
	f.subs.Watch(f.discountCurve, f)
	return f, nil
}

// checkTerms validates the terms after maturity adjustment.
func (f *FRA) checkTerms() []error {
	var errs []error
	if !(f.notional > 0) {
		errs = append(errs, fmt.Errorf("%w: got %v", ErrNonPositiveNotional, f.notional))
	}
	if !f.valueDate.Before(f.maturityDate) {
		errs = append(errs, fmt.Errorf("%w: value date %s, adjusted maturity %s", ErrValueDateNotBeforeMaturity,
			f.valueDate.Format(utils.DateLayout), f.maturityDate.Format(utils.DateLayout)))
	}
	if f.position != market.PositionLong && f.position != market.PositionShort {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidPosition, f.position))
	}
	return errs
}

func (f *FRA) init(opts []Option) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if isNilInterface(o.ctx) {
		o.ctx = settings.Default()
	}
	if o.logger == nil {
		o.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	f.ctx = o.ctx
	f.log = o.logger.WithFields(logrus.Fields{
		"instrument":    "FRA",
		"value_date":    f.valueDate.Format(utils.DateLayout),
		"maturity_date": f.maturityDate.Format(utils.DateLayout),
		"strategy":      f.strategy.String(),
	})
	f.cache = lazy.New(f.calculate)
	f.subs.Watch(f.ctx, f)
}

// Update invalidates the cached results. Observers of the FRA are notified only when
// calculated results were dropped; while frozen the change is held until Unfreeze.
func (f *FRA) Update() {
	if f.cache.Invalidate() {
		f.Notify()
	}
}

// Close cancels the FRA's subscriptions to its market data and evaluation context.
func (f *FRA) Close() {
	f.subs.CancelAll()
}

// FixingDate is the date the forward rate is fixed.
func (f *FRA) FixingDate() time.Time {
	if f.index != nil {
		return f.index.FixingDate(f.valueDate)
	}
	return f.cal.Advance(f.valueDate, -f.fixingDays, calendar.Days, f.bdc)
}

// IsExpired reports whether the value date has passed relative to the evaluation context.
func (f *FRA) IsExpired() bool {
	return f.ctx.HasOccurred(f.valueDate)
}

// Amount is the settlement amount paid on the value date.
func (f *FRA) Amount() (float64, error) {
	r, err := f.cache.Get()
	return r.Amount, err
}

// ForwardRate is the forward rate over the FRA period.
func (f *FRA) ForwardRate() (rates.InterestRate, error) {
	r, err := f.cache.Get()
	return r.ForwardRate, err
}

// NPV is the settlement amount discounted to the curve reference date. Zero once expired.
func (f *FRA) NPV() (float64, error) {
	r, err := f.cache.Get()
	return r.NPV, err
}

// ErrorEstimate is always zero for this closed-form valuation.
func (f *FRA) ErrorEstimate() (float64, error) {
	r, err := f.cache.Get()
	return r.ErrorEstimate, err
}

// Results returns all outputs of the current calculation.
func (f *FRA) Results() (Results, error) {
	return f.cache.Get()
}

// Recalculate discards the cache and recomputes.
func (f *FRA) Recalculate() (Results, error) {
	return f.cache.Recalculate()
}

// IsCalculated reports whether the next query is a cache hit.
func (f *FRA) IsCalculated() bool { return f.cache.IsCalculated() }

// Freeze keeps the current results through market data changes until Unfreeze.
func (f *FRA) Freeze() { f.cache.Freeze() }

// Unfreeze resumes tracking market data; a change seen while frozen is applied now.
func (f *FRA) Unfreeze() {
	if f.cache.Unfreeze() {
		f.Notify()
	}
}

func (f *FRA) Position() market.Position                            { return f.position }
func (f *FRA) Notional() float64                                    { return f.notional }
func (f *FRA) StrikeForwardRate() rates.InterestRate                { return f.strike }
func (f *FRA) ValueDate() time.Time                                 { return f.valueDate }
func (f *FRA) MaturityDate() time.Time                              { return f.maturityDate }
func (f *FRA) DayCount() market.DayCount                            { return f.dayCount }
func (f *FRA) Calendar() Calendar                                   { return f.cal }
func (f *FRA) BusinessDayConvention() calendar.BusinessDayConvention { return f.bdc }
func (f *FRA) FixingDays() int                                      { return f.fixingDays }
func (f *FRA) UseIndexedCoupon() bool                               { return f.useIndexedCoupon }
func (f *FRA) Strategy() Strategy                                   { return f.strategy }

// Index returns the index, or nil for curve-only FRAs.
func (f *FRA) Index() Index { return f.index }

// DiscountCurve returns the explicit discount curve, or nil.
func (f *FRA) DiscountCurve() termstructure.YieldCurve { return f.discountCurve }
