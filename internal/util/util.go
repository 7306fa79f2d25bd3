// Package util provides date helpers shared by the exporter and the reliability report.
package util

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// daysPerMonth is the mean month length used for ages.
const daysPerMonth = 30.44

// ParseDate parses a free-form date (month first when ambiguous) and
// truncates it to the calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := dateparse.ParseAny(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// SameDate reports whether a and b denote the same calendar day. Values that
// do not parse as dates are compared as trimmed strings.
func SameDate(a, b string) bool {
	da, errA := ParseDate(a)
	db, errB := ParseDate(b)
	if errA != nil || errB != nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return da.Equal(db)
}

// AgeMonths returns the age in months at dateOfInterest, or 0 if either date
// fails to parse.
func AgeMonths(dateOfBirth, dateOfInterest string) float64 {
	d0, err := ParseDate(dateOfBirth)
	if err != nil {
		return 0
	}
	d1, err := ParseDate(dateOfInterest)
	if err != nil {
		return 0
	}
	days := math.Round(d1.Sub(d0).Hours() / 24)
	return days / daysPerMonth
}
