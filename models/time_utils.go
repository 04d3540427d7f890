package models

import (
	"time"
)

// DefaultMarketTimezone is the exchange calendar used for trading dates
const DefaultMarketTimezone = "America/New_York"

// MarketLocation loads the named zone, falling back to UTC
func MarketLocation(name string) *time.Location {
	if name == "" {
		name = DefaultMarketTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TradingDate returns the calendar date of t in loc as midnight UTC
func TradingDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarDate strips the clock from t without changing zones
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysToExpiration counts calendar days from the observation date to expiry.
// Expired contracts return a negative count.
func DaysToExpiration(observationDate, expiration time.Time) int {
	from := CalendarDate(observationDate)
	to := CalendarDate(expiration)
	return int(to.Sub(from).Hours() / 24)
}

// BusinessDaysBack walks back n weekdays from date and returns the earliest one
func BusinessDaysBack(date time.Time, n int) time.Time {
	current := CalendarDate(date)
	counted := 0
	for counted < n {
		current = current.AddDate(0, 0, -1)
		if wd := current.Weekday(); wd != time.Saturday && wd != time.Sunday {
			counted++
		}
	}
	return current
}
