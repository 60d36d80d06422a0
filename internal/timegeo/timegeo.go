// Package timegeo provides the pure, deterministic time-of-day and
// geo-distance primitives every scheduling component builds on. No I/O,
// no wall-clock reads — callers pass in "now" where it matters.
package timegeo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
)

const earthRadiusKm = 6371.0088

const MinutesPerDay = 24 * 60

// ParseHHMM parses a zero-padded 24-hour "HH:MM" string into minutes
// since midnight.
func ParseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, apperr.Validation(fmt.Sprintf("invalid time-of-day %q, expected HH:MM", s))
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, apperr.Validation(fmt.Sprintf("invalid hour in %q", s))
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, apperr.Validation(fmt.Sprintf("invalid minute in %q", s))
	}
	return h*60 + m, nil
}

// FormatHHMM is the inverse of ParseHHMM.
func FormatHHMM(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// AddMinutes adds delta minutes to a "HH:MM" string. Wrapping past
// midnight is rejected rather than silently taken modulo 24h.
func AddMinutes(hhmm string, delta int) (string, error) {
	base, err := ParseHHMM(hhmm)
	if err != nil {
		return "", err
	}
	total := base + delta
	if total < 0 || total >= MinutesPerDay {
		return "", apperr.Validation(fmt.Sprintf("%q + %dmin wraps past the day boundary", hhmm, delta))
	}
	return FormatHHMM(total), nil
}

// Compare returns -1, 0, or 1 comparing two "HH:MM" strings. Valid
// zero-padded times compare correctly as plain strings, but we parse to
// reject malformed input rather than silently lexically compare garbage.
func Compare(a, b string) (int, error) {
	am, err := ParseHHMM(a)
	if err != nil {
		return 0, err
	}
	bm, err := ParseHHMM(b)
	if err != nil {
		return 0, err
	}
	switch {
	case am < bm:
		return -1, nil
	case am > bm:
		return 1, nil
	default:
		return 0, nil
	}
}

// Before reports whether a is strictly earlier than b.
func Before(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c < 0, err
}

// DurationMinutes returns end-start in minutes, on the same day. Negative
// results indicate end is before start, which callers should treat as a
// validation error (start_time < end_time is a cross-cutting invariant).
func DurationMinutes(start, end string) (int, error) {
	s, err := ParseHHMM(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseHHMM(end)
	if err != nil {
		return 0, err
	}
	return e - s, nil
}

var weekdayNames = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DayOfWeek derives the lowercase weekday name (matching the POI catalog's
// hours keys) from a "YYYY-MM-DD" date string.
func DayOfWeek(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", apperr.Validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	return weekdayNames[int(t.Weekday())], nil
}

// DaysBetween returns ceil((end-start)/1 day) + 1, an inclusive day count —
// i.e. a trip that starts and ends on the same date is 1 day.
func DaysBetween(startDate, endDate string) (int, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return 0, apperr.Validation(fmt.Sprintf("invalid start date %q", startDate))
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return 0, apperr.Validation(fmt.Sprintf("invalid end date %q", endDate))
	}
	if end.Before(start) {
		return 0, apperr.Validation("end date precedes start date")
	}
	days := int(math.Ceil(end.Sub(start).Hours()/24)) + 1
	return days, nil
}

// AddDate adds n days to a "YYYY-MM-DD" string and returns the result in
// the same format.
func AddDate(date string, days int) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", apperr.Validation(fmt.Sprintf("invalid date %q", date))
	}
	return t.AddDate(0, 0, days).Format("2006-01-02"), nil
}

// HaversineKm returns the great-circle distance in kilometres between two
// lat/lng pairs given in decimal degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degToRad(lat2 - lat1)
	dLng := degToRad(lng2 - lng1)

	rLat1 := degToRad(lat1)
	rLat2 := degToRad(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
