package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Every calendar computation happens in this civil timezone.
const LocationName = "America/Los_Angeles"

var location = func() *time.Location {
	loc, err := time.LoadLocation(LocationName)
	if err != nil {
		panic(fmt.Sprintf("calendar: can't load %s: %v", LocationName, err))
	}
	return loc
}()

// Get the fixed civil timezone
func Location() *time.Location {
	return location
}

var (
	dateLayout       = "2006-01-02"
	naiveTimeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}
)

// ParseCivil reads a stored date or timestamp into the fixed zone.
//
//   - "2006-01-02" is a civil date and lands on local midnight of that day,
//     whatever the offset of the machine parsing it.
//   - RFC 3339 values carry their own offset; the instant is kept and only
//     the presentation zone changes.
//   - offset-less timestamps are wall-clock time in the fixed zone.
//
// Blank input returns a zero time and a nil error.
func ParseCivil(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}

	if t, err := time.ParseInLocation(dateLayout, raw, location); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.In(location), nil
	}
	for _, layout := range naiveTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, location); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("ParseCivil: unrecognised date %q", raw)
}

// Midnight of the civil day t falls on.
func StartOfDay(t time.Time) time.Time {
	t = t.In(location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, location)
}

// Report whether a and b fall on the same civil day.
func SameDay(a, b time.Time) bool {
	a, b = a.In(location), b.In(location)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
