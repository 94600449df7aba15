package utils

import (
	"time"
)

// YearFraction computes year fraction between two dates using the specified day count convention.
// Supported conventions: ACT/360, ACT/365F, 30E/360, 30/360, ACT/ACT
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case "ACT/360":
		days := end.Sub(start).Hours() / 24
		return days / 360.0
	case "ACT/365F", "ACT/365":
		days := end.Sub(start).Hours() / 24
		return days / 365.0
	case "30/360":
		// 30/360 US (bond basis): D2 is capped only when D1 is already 30.
		d1 := start.Day()
		if d1 == 31 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 == 31 && d1 == 30 {
			d2 = 30
		}
		return thirty360(start, end, d1, d2)
	case "30E/360":
		// 30E/360 ISDA (Eurobond basis)
		// D1 and D2 are capped at 30
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		return thirty360(start, end, d1, d2)
	case "ACT/ACT":
		return actActISDA(start, end)
	default:
		days := end.Sub(start).Hours() / 24
		return days / 365.0
	}
}

func thirty360(start, end time.Time, d1, d2 int) float64 {
	y1, m1 := start.Year(), int(start.Month())
	y2, m2 := end.Year(), int(end.Month())
	return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
}

// actActISDA splits the period at year boundaries and divides each piece by its year length.
func actActISDA(start, end time.Time) float64 {
	if end.Before(start) {
		return -actActISDA(end, start)
	}
	if start.Year() == end.Year() {
		return Days(start, end) / daysInYear(start.Year())
	}
	nextYear := time.Date(start.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	lastYear := time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	sum := Days(start, nextYear)/daysInYear(start.Year()) + float64(end.Year()-start.Year()-1)
	return sum + Days(lastYear, end)/daysInYear(end.Year())
}

func daysInYear(y int) float64 {
	if (y%4 == 0 && y%100 != 0) || y%400 == 0 {
		return 366
	}
	return 365
}
