package calendar

import (
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryBirthday           Category = "BIRTHDAY"
	CategoryWeddingAnniversary Category = "WEDDING_ANNIVERSARY"
	CategoryHomeAnniversary    Category = "HOME_ANNIVERSARY"
	CategoryTask               Category = "TASK"
)

// Tasks without an explicit end last this long.
const DefaultTaskDuration = time.Hour

// Report whether the category is derived from a lead date.
func (c Category) IsMilestone() bool {
	switch c {
	case CategoryBirthday, CategoryWeddingAnniversary, CategoryHomeAnniversary:
		return true
	}
	return false
}

// The lead fields the calendar cares about. Dates are stored strings, blank
// when unknown.
type Lead struct {
	ID                 string
	Name               string
	DateOfBirth        string
	WeddingAnniversary string
	HomeAnniversary    string
}

type Task struct {
	ID      string
	Title   string
	DueDate string
	EndDate string
}

// Event is a read-only projection of a lead milestone or a task. It is
// rebuilt from scratch whenever the underlying collections change.
type Event struct {
	ID       string     `json:"id"`
	Category Category   `json:"category"`
	Title    string     `json:"title"`
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end,omitempty"`
	AllDay   bool       `json:"allDay"`

	// exactly one of these is set
	LeadID string `json:"leadId,omitempty"`
	TaskID string `json:"taskId,omitempty"`
}

// Project merges leads and tasks into one flat event list. The result has no
// particular order.
//
// Unparseable dates are not rejected: the event is still emitted with a zero
// Start and consumers skip it.
func Project(leads []Lead, tasks []Task) []Event {
	events := make([]Event, 0, len(leads)+len(tasks))

	for _, lead := range leads {
		for _, m := range []struct {
			category Category
			raw      string
			suffix   string
		}{
			{CategoryBirthday, lead.DateOfBirth, "Birthday"},
			{CategoryWeddingAnniversary, lead.WeddingAnniversary, "Wedding Anniversary"},
			{CategoryHomeAnniversary, lead.HomeAnniversary, "Home Anniversary"},
		} {
			if strings.TrimSpace(m.raw) == "" {
				continue
			}
			start, _ := ParseCivil(m.raw)
			events = append(events, Event{
				ID:       eventID(m.category, lead.ID),
				Category: m.category,
				Title:    fmt.Sprintf("%s's %s", lead.Name, m.suffix),
				Start:    start,
				AllDay:   true,
				LeadID:   lead.ID,
			})
		}
	}

	for _, task := range tasks {
		start, _ := ParseCivil(task.DueDate)
		end, err := ParseCivil(task.EndDate)
		if err != nil || end.IsZero() {
			end = start.Add(DefaultTaskDuration)
		}
		events = append(events, Event{
			ID:       eventID(CategoryTask, task.ID),
			Category: CategoryTask,
			Title:    task.Title,
			Start:    start,
			End:      &end,
			TaskID:   task.ID,
		})
	}

	return events
}

func eventID(category Category, sourceID string) string {
	return strings.ToLower(string(category)) + "-" + sourceID
}

// End time for layout purposes: the explicit end when it is after the
// start, otherwise start + DefaultTaskDuration.
func (e Event) EffectiveEnd() time.Time {
	if e.End != nil && e.End.After(e.Start) {
		return *e.End
	}
	return e.Start.Add(DefaultTaskDuration)
}
