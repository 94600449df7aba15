package calendar

import (
	"fmt"
	"sync"
	"time"

	"github.com/meenmo/fralib/utils"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	TARGET CalendarID = "TARGET"
	JPN    CalendarID = "JPN"
	USD    CalendarID = "USD"
	KRW    CalendarID = "KRW"
	// WeekendsOnly treats every Monday-Friday as a business day.
	WeekendsOnly CalendarID = "WEEKENDS_ONLY"
)

// BusinessDayConvention decides how a non-business day is rolled.
type BusinessDayConvention string

const (
	Following         BusinessDayConvention = "FOLLOWING"
	ModifiedFollowing BusinessDayConvention = "MODIFIED_FOLLOWING"
	Preceding         BusinessDayConvention = "PRECEDING"
	ModifiedPreceding BusinessDayConvention = "MODIFIED_PRECEDING"
	Unadjusted        BusinessDayConvention = "UNADJUSTED"
)

// TimeUnit is the unit used by Advance.
type TimeUnit string

const (
	Days   TimeUnit = "D"
	Weeks  TimeUnit = "W"
	Months TimeUnit = "M"
	Years  TimeUnit = "Y"
)

var (
	extraMu       sync.RWMutex
	extraHolidays = map[CalendarID]map[string]struct{}{}
)

// AddHolidays registers additional holidays (YYYY-MM-DD) for a calendar.
func AddHolidays(cal CalendarID, dates ...string) error {
	extraMu.Lock()
	defer extraMu.Unlock()

	set, ok := extraHolidays[cal]
	if !ok {
		set = make(map[string]struct{}, len(dates))
		extraHolidays[cal] = set
	}
	for _, d := range dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("AddHolidays: %s: %w", cal, err)
		}
		set[d] = struct{}{}
	}
	return nil
}

func isHoliday(cal CalendarID, t time.Time) bool {
	extraMu.RLock()
	_, ok := extraHolidays[cal][t.Format("2006-01-02")]
	extraMu.RUnlock()
	if ok {
		return true
	}
	switch cal {
	case TARGET:
		return isTargetHoliday(t)
	default:
		return false
	}
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// AdjustWith rolls t onto a business day according to bdc.
func AdjustWith(cal CalendarID, t time.Time, bdc BusinessDayConvention) time.Time {
	switch bdc {
	case Unadjusted:
		return t
	case Following, ModifiedFollowing:
		d := t
		for !IsBusinessDay(cal, d) {
			d = d.AddDate(0, 0, 1)
		}
		if bdc == ModifiedFollowing && d.Month() != t.Month() {
			return AdjustWith(cal, t, Preceding)
		}
		return d
	case Preceding, ModifiedPreceding:
		d := t
		for !IsBusinessDay(cal, d) {
			d = d.AddDate(0, 0, -1)
		}
		if bdc == ModifiedPreceding && d.Month() != t.Month() {
			return AdjustWith(cal, t, Following)
		}
		return d
	default:
		return AdjustWith(cal, t, Following)
	}
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// Advance moves t by n units. Days are business days; the other units move on the
// calendar and roll the result with bdc. With endOfMonth set, a start date on the last
// business day of its month lands on the last business day of the target month.
func Advance(cal CalendarID, t time.Time, n int, unit TimeUnit, bdc BusinessDayConvention, endOfMonth bool) time.Time {
	switch unit {
	case Days:
		if n == 0 {
			return AdjustWith(cal, t, bdc)
		}
		return AddBusinessDays(cal, t, n)
	case Weeks:
		return AdjustWith(cal, t.AddDate(0, 0, 7*n), bdc)
	case Months, Years:
		months := n
		if unit == Years {
			months = 12 * n
		}
		d := utils.AddMonths(t, months)
		if endOfMonth && IsEndOfMonth(cal, t) {
			return LastBusinessDayOfMonth(cal, d)
		}
		return AdjustWith(cal, d, bdc)
	default:
		return AdjustWith(cal, t, bdc)
	}
}

// LastBusinessDayOfMonth returns the last business day of the month containing t.
func LastBusinessDayOfMonth(cal CalendarID, t time.Time) time.Time {
	nextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return AddBusinessDays(cal, nextMonth, -1)
}

// IsEndOfMonth checks if t is the last business day of its month.
func IsEndOfMonth(cal CalendarID, t time.Time) bool {
	return t.Equal(LastBusinessDayOfMonth(cal, t))
}

// Adjust makes CalendarID usable wherever a calendar capability is consumed.
func (c CalendarID) Adjust(t time.Time, bdc BusinessDayConvention) time.Time {
	return AdjustWith(c, t, bdc)
}

// Advance moves t by n units without end-of-month handling.
func (c CalendarID) Advance(t time.Time, n int, unit TimeUnit, bdc BusinessDayConvention) time.Time {
	return Advance(c, t, n, unit, bdc, false)
}

// IsBusinessDay reports whether t is a business day on c.
func (c CalendarID) IsBusinessDay(t time.Time) bool {
	return IsBusinessDay(c, t)
}
