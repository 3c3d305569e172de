package calendar

import (
	"time"

	ics "github.com/arran4/golang-ical"
)

const icalProductID = "-//brokerdesk//calendar//EN"

// ICal renders events as an iCalendar feed. Milestones become all-day
// events repeating every year from their original date; tasks are single
// timed events. Events with a zero start are left out.
func ICal(name string, events []Event, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icalProductID)
	cal.SetName(name)
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(LocationName)

	for _, event := range events {
		if event.Start.IsZero() {
			continue
		}

		vevent := cal.AddEvent(event.ID)
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetSummary(event.Title)
		vevent.SetProperty(ics.ComponentPropertyCategories, string(event.Category))

		if event.AllDay {
			start := StartOfDay(event.Start)
			vevent.SetAllDayStartAt(start)
			vevent.SetAllDayEndAt(start.AddDate(0, 0, 1))
		} else {
			vevent.SetStartAt(event.Start.UTC())
			vevent.SetEndAt(event.EffectiveEnd().UTC())
		}
		if event.Category.IsMilestone() {
			vevent.AddRrule("FREQ=YEARLY")
		}
	}
	return cal.Serialize()
}
