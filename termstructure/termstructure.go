// Package termstructure provides discount curves consumed by instrument pricing.
//
// Curve construction (bootstrapping) is not done here: curves are built from discount
// factors or a flat rate supplied by the caller, and may be updated in place, which
// notifies every instrument registered with them.
package termstructure

import (
	"errors"
	"time"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/observer"
)

var (
	// ErrEmptyHandle is returned when a handle is used before being linked to a curve.
	ErrEmptyHandle = errors.New("empty curve handle")
	// ErrBeforeReference is returned for dates earlier than the curve reference date.
	ErrBeforeReference = errors.New("date before curve reference date")
)

// YieldCurve provides discount factors for valuation.
type YieldCurve interface {
	observer.Observable
	Discount(t time.Time) (float64, error)
	DayCount() market.DayCount
	Calendar() calendar.CalendarID
	ReferenceDate() time.Time
}
