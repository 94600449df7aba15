package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/utils"
)

// DayCount enum.
type DayCount string

const (
	Act360   DayCount = "ACT/360"
	Act365   DayCount = "ACT/365"
	Act365F  DayCount = "ACT/365F"
	Dc30360  DayCount = "30/360"
	Dc30E360 DayCount = "30E/360"
	ActAct   DayCount = "ACT/ACT"
)

// YearFraction converts the span between two dates into years under the convention.
func (dc DayCount) YearFraction(start, end time.Time) float64 {
	return utils.YearFraction(start, end, string(dc))
}

// ParseDayCount accepts the usual spellings of the supported conventions.
func ParseDayCount(s string) (DayCount, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "ACT/360", "A360", "ACTUAL/360":
		return Act360, nil
	case "ACT/365", "ACTUAL/365":
		return Act365, nil
	case "ACT/365F", "A365F", "ACT/365FIXED", "ACTUAL/365FIXED":
		return Act365F, nil
	case "30/360", "30U/360", "BOND":
		return Dc30360, nil
	case "30E/360", "EUROBOND":
		return Dc30E360, nil
	case "ACT/ACT", "ACTUAL/ACTUAL", "ACT/ACTISDA":
		return ActAct, nil
	default:
		return "", fmt.Errorf("unknown day count %q", s)
	}
}

// Position describes whether the FRA buys (Long) or sells (Short) the forward rate.
type Position string

const (
	PositionLong  Position = "LONG"
	PositionShort Position = "SHORT"
)

// Sign is +1 for Long and -1 for Short.
func (p Position) Sign() float64 {
	if p == PositionShort {
		return -1
	}
	return 1
}

// ParsePosition accepts LONG/SHORT and the trader aliases BUY/SELL.
func ParsePosition(s string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return PositionLong, nil
	case "SHORT", "SELL":
		return PositionShort, nil
	default:
		return "", fmt.Errorf("invalid position %q (use LONG or SHORT)", s)
	}
}

// Period is a length of time such as 3M or 1Y.
type Period struct {
	Length int
	Unit   calendar.TimeUnit
}

func (p Period) String() string {
	return strconv.Itoa(p.Length) + string(p.Unit)
}

// ParsePeriod converts tenor strings like "2D", "1W", "3M", "10Y".
func ParsePeriod(tenor string) (Period, error) {
	tenor = strings.TrimSpace(strings.ToUpper(tenor))
	if len(tenor) < 2 {
		return Period{}, fmt.Errorf("invalid tenor %q", tenor)
	}
	n, err := strconv.Atoi(tenor[:len(tenor)-1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid tenor %q: %w", tenor, err)
	}
	switch unit := calendar.TimeUnit(tenor[len(tenor)-1:]); unit {
	case calendar.Days, calendar.Weeks, calendar.Months, calendar.Years:
		return Period{Length: n, Unit: unit}, nil
	default:
		return Period{}, fmt.Errorf("invalid tenor unit in %q", tenor)
	}
}
