package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/xyedo/rrule"
)

// Occurrence is an event placed on a concrete date. Milestones recur yearly,
// so their Start moves to the visible year while Source keeps the original
// date.
type Occurrence struct {
	Event
	Source time.Time `json:"source"`
	// years since Source; birthdays read it as the age being turned
	Years int `json:"years,omitempty"`
}

// Occurrences places events inside the given month (zero-based index, the
// same convention as MonthGrid). Events with a zero start are dropped.
// Result is sorted by start, then ID.
func Occurrences(events []Event, year, monthIndex int) ([]Occurrence, error) {
	monthStart := time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, location)
	monthEnd := monthStart.AddDate(0, 1, 0)

	occurrences := make([]Occurrence, 0)
	for _, event := range events {
		if event.Start.IsZero() {
			continue
		}

		if !event.Category.IsMilestone() {
			if !event.Start.Before(monthStart) && event.Start.Before(monthEnd) {
				occurrences = append(occurrences, Occurrence{Event: event, Source: event.Start})
			}
			continue
		}

		dates, err := yearly(event.Start, monthStart, monthEnd)
		if err != nil {
			return nil, fmt.Errorf("Occurrences: %s: %w", event.ID, err)
		}
		for _, date := range dates {
			o := Occurrence{Event: event, Source: event.Start, Years: date.Year() - event.Start.Year()}
			o.Start = date
			occurrences = append(occurrences, o)
		}
	}

	sortOccurrences(occurrences)
	return occurrences, nil
}

// Dates in [from, to) on which a yearly milestone starting at dtstart falls.
// Feb 29 milestones only land on leap years.
func yearly(dtstart, from, to time.Time) ([]time.Time, error) {
	if !dtstart.Before(to) {
		return nil, nil
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.YEARLY,
		Dtstart: StartOfDay(dtstart),
	})
	if err != nil {
		return nil, err
	}
	return r.Between(from, to.Add(-time.Nanosecond), true), nil
}

// OnDay keeps the occurrences starting on the civil day of day.
func OnDay(occurrences []Occurrence, day time.Time) []Occurrence {
	result := make([]Occurrence, 0)
	for _, o := range occurrences {
		if SameDay(o.Start, day) {
			result = append(result, o)
		}
	}
	return result
}

func sortOccurrences(occurrences []Occurrence) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		if !occurrences[i].Start.Equal(occurrences[j].Start) {
			return occurrences[i].Start.Before(occurrences[j].Start)
		}
		return occurrences[i].ID < occurrences[j].ID
	})
}
