package market

import (
	"time"
	_ "time/tzdata"
)

// ----- session labels -----

type Session string

const (
	SessionClosed     Session = "closed"
	SessionHoliday    Session = "holiday"
	SessionPreMarket  Session = "pre_market"
	SessionRegular    Session = "regular"
	SessionAfterHours Session = "after_hours"

	DaysPerWeek          = 7
	ThirdMondayOffset    = 2
	FourthThursdayOffset = 3
)

// Regular session bounds, minutes after midnight New York time.
const (
	preMarketOpen  = 4 * 60
	regularOpen    = 9*60 + 30
	regularClose   = 16 * 60
	afterHoursShut = 20 * 60
)

var newYork = loadNewYork()

func loadNewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// NewYork is the exchange time zone.
func NewYork() *time.Location {
	return newYork
}

// ----- public API -----

// SessionAt classifies t against the US equity options calendar.
func SessionAt(t time.Time) Session {
	et := t.In(newYork)

	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return SessionClosed
	}
	if IsHoliday(et) {
		return SessionHoliday
	}

	m := et.Hour()*60 + et.Minute()
	switch {
	case m < preMarketOpen:
		return SessionClosed
	case m < regularOpen:
		return SessionPreMarket
	case m < regularClose:
		return SessionRegular
	case m < afterHoursShut:
		return SessionAfterHours
	default:
		return SessionClosed
	}
}

// IsMarketOpen reports whether t falls in the regular session, when option marks are meaningful.
func IsMarketOpen(t time.Time) bool {
	return SessionAt(t) == SessionRegular
}

// ExpirationCutoff is the 16:00 New York close on date's calendar day.
func ExpirationCutoff(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 16, 0, 0, 0, newYork)
}

// IsHoliday reports whether t's New York calendar day is a full-day exchange holiday.
func IsHoliday(t time.Time) bool {
	et := t.In(newYork)
	return isDateAmong(et, holidays(et.Year()))
}

// ----- helpers -----

func holidays(year int) []time.Time {
	// New Year's Day falling on Saturday is not observed on the prior Friday
	newYearsDay := date(year, time.January, 1)
	if newYearsDay.Weekday() == time.Sunday {
		newYearsDay = newYearsDay.AddDate(0, 0, 1)
	}

	mlkDay := calculateSpecificMonday(year, time.January, ThirdMondayOffset)
	presidentsDay := calculateSpecificMonday(year, time.February, ThirdMondayOffset)
	goodFriday := easterSunday(year).AddDate(0, 0, -2)

	memorialDay := date(year, time.May, 31)
	for memorialDay.Weekday() != time.Monday {
		memorialDay = memorialDay.AddDate(0, 0, -1)
	}

	laborDay := calculateSpecificMonday(year, time.September, 0)
	thanksgivingDay := calculateSpecificThursday(year, time.November, FourthThursdayOffset)

	out := []time.Time{
		newYearsDay,
		mlkDay,
		presidentsDay,
		goodFriday,
		memorialDay,
		observed(date(year, time.July, 4)),
		laborDay,
		thanksgivingDay,
		observed(date(year, time.December, 25)),
	}
	if year >= 2022 {
		out = append(out, observed(date(year, time.June, 19)))
	}
	return out
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, newYork)
}

// observed moves a Saturday holiday to Friday and a Sunday holiday to Monday.
func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	default:
		return t
	}
}

// easterSunday uses the anonymous Gregorian algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}

// calculateSpecificMonday calculates the specific Monday of a month (like the third Monday).
func calculateSpecificMonday(year int, month time.Month, mondayOffset int) time.Time {
	firstOfMonth := date(year, month, 1)
	offset := int(time.Monday-firstOfMonth.Weekday()+DaysPerWeek) % DaysPerWeek
	return firstOfMonth.AddDate(0, 0, offset+mondayOffset*DaysPerWeek)
}

// calculateSpecificThursday calculates the specific Thursday of a month (like the fourth Thursday).
func calculateSpecificThursday(year int, month time.Month, thursdayOffset int) time.Time {
	firstOfMonth := date(year, month, 1)
	offset := int(time.Thursday-firstOfMonth.Weekday()+DaysPerWeek) % DaysPerWeek
	return firstOfMonth.AddDate(0, 0, offset+thursdayOffset*DaysPerWeek)
}

// isDateAmong checks if the given date matches any date in the list.
func isDateAmong(t time.Time, dates []time.Time) bool {
	for _, d := range dates {
		if t.Format("2006-01-02") == d.Format("2006-01-02") {
			return true
		}
	}
	return false
}
