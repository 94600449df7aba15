package index

import (
	"fmt"

	"github.com/meenmo/fralib/calendar"
	"github.com/meenmo/fralib/market"
	"github.com/meenmo/fralib/settings"
	"github.com/meenmo/fralib/termstructure"
)

// Preset index conventions for EUR, JPY and KRW term rates.
var presets = map[market.ReferenceIndex]IborIndexParams{
	market.EURIBOR3M: {
		Name:                  market.EURIBOR3M,
		Tenor:                 market.Period{Length: 3, Unit: calendar.Months},
		FixingDays:            2,
		Calendar:              calendar.TARGET,
		BusinessDayConvention: calendar.ModifiedFollowing,
		EndOfMonth:            true,
		DayCount:              market.Act360,
	},
	market.EURIBOR6M: {
		Name:                  market.EURIBOR6M,
		Tenor:                 market.Period{Length: 6, Unit: calendar.Months},
		FixingDays:            2,
		Calendar:              calendar.TARGET,
		BusinessDayConvention: calendar.ModifiedFollowing,
		EndOfMonth:            true,
		DayCount:              market.Act360,
	},
	market.TIBOR3M: {
		Name:                  market.TIBOR3M,
		Tenor:                 market.Period{Length: 3, Unit: calendar.Months},
		FixingDays:            2,
		Calendar:              calendar.JPN,
		BusinessDayConvention: calendar.ModifiedFollowing,
		EndOfMonth:            true,
		DayCount:              market.Act365F,
	},
	market.TIBOR6M: {
		Name:                  market.TIBOR6M,
		Tenor:                 market.Period{Length: 6, Unit: calendar.Months},
		FixingDays:            2,
		Calendar:              calendar.JPN,
		BusinessDayConvention: calendar.ModifiedFollowing,
		EndOfMonth:            true,
		DayCount:              market.Act365F,
	},
	market.CD91D: {
		Name:                  market.CD91D,
		Tenor:                 market.Period{Length: 3, Unit: calendar.Months},
		FixingDays:            1,
		Calendar:              calendar.KRW,
		BusinessDayConvention: calendar.ModifiedFollowing,
		EndOfMonth:            true,
		DayCount:              market.Act365F,
	},
}

// FromPreset builds one of the bundled indices with the given market data.
// fixings and ctx may be nil.
func FromPreset(name market.ReferenceIndex, forwarding termstructure.YieldCurve, fixings FixingStore, ctx *settings.Context) (*IborIndex, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("FromPreset: no preset for %q", name)
	}
	p.ForwardingCurve = forwarding
	p.Fixings = fixings
	p.Context = ctx
	return NewIborIndex(p)
}
