package utils

import (
	"time"

	logger "github.com/sirupsen/logrus"
)

// ResetTime resets the time component based on the granularity specified.
// Pass "minute" to reset seconds to zero.
// Pass "hour" to reset minutes and seconds to zero.
// Pass "day" to reset to midnight in t's own location.
func ResetTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "minute":
		return t.Truncate(time.Minute)
	case "hour":
		return t.Truncate(time.Hour)
	case "day":
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	default:
		logger.WithField("granularity", granularity).Warn("Invalid granularity. Please use 'minute', 'hour' or 'day'.")
		return t
	}
}

// DayWindowStart is midnight of the first day of an n-day window ending on asOf's day.
func DayWindowStart(asOf time.Time, days int) time.Time {
	return ResetTime(asOf, "day").AddDate(0, 0, -(days - 1))
}
