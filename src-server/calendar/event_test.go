package calendar_test

import (
	"testing"
	"time"

	"brokerdesk/src-server/calendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func la(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, calendar.Location())
}

func TestParseCivil(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
		want time.Time
	}{
		{"date only", "2026-12-31", la(2026, time.December, 31, 0, 0)},
		{"date near new year stays put", "2027-01-01", la(2027, time.January, 1, 0, 0)},
		{"zoned timestamp keeps instant", "2026-01-15T18:00:00Z", la(2026, time.January, 15, 10, 0)},
		{"naive timestamp is local wall clock", "2026-07-04T09:30", la(2026, time.July, 4, 9, 30)},
		{"blank", "  ", time.Time{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := calendar.ParseCivil(tc.raw)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
			if !got.IsZero() {
				assert.Equal(t, calendar.LocationName, got.Location().String())
			}
		})
	}

	_, err := calendar.ParseCivil("31/12/2026")
	assert.Error(t, err)
}

func TestProjectMilestones(t *testing.T) {
	leads := []calendar.Lead{
		{ID: "l1", Name: "Jane Doe", DateOfBirth: "1985-03-10"},
		{ID: "l2", Name: "John Roe", DateOfBirth: "1990-06-01", WeddingAnniversary: "2015-09-12", HomeAnniversary: "2020-03-08"},
		{ID: "l3", Name: "No Dates"},
	}

	events := calendar.Project(leads, nil)
	require.Len(t, events, 4)

	birthdays := 0
	for _, e := range events {
		assert.True(t, e.AllDay)
		assert.Nil(t, e.End)
		assert.Empty(t, e.TaskID)
		assert.NotEmpty(t, e.LeadID)
		if e.Category == calendar.CategoryBirthday && e.LeadID == "l1" {
			birthdays++
			assert.True(t, la(1985, time.March, 10, 0, 0).Equal(e.Start))
			assert.Equal(t, calendar.LocationName, e.Start.Location().String())
			assert.Equal(t, "Jane Doe's Birthday", e.Title)
			assert.Equal(t, "birthday-l1", e.ID)
		}
	}
	assert.Equal(t, 1, birthdays)
}

func TestProjectTasks(t *testing.T) {
	tasks := []calendar.Task{
		{ID: "t1", Title: "Call lender", DueDate: "2026-01-15T10:00"},
		{ID: "t2", Title: "Showing", DueDate: "2026-01-15T13:00", EndDate: "2026-01-15T15:30"},
	}

	events := calendar.Project(nil, tasks)
	require.Len(t, events, 2)

	byID := map[string]calendar.Event{}
	for _, e := range events {
		assert.Equal(t, calendar.CategoryTask, e.Category)
		require.NotNil(t, e.End)
		byID[e.TaskID] = e
	}

	assert.Equal(t, 60*time.Minute, byID["t1"].End.Sub(byID["t1"].Start))
	assert.True(t, la(2026, time.January, 15, 15, 30).Equal(*byID["t2"].End))
}

func TestProjectMalformedDates(t *testing.T) {
	events := calendar.Project(
		[]calendar.Lead{{ID: "l1", Name: "Jane", DateOfBirth: "not a date"}},
		[]calendar.Task{{ID: "t1", Title: "Broken", DueDate: "soon-ish"}},
	)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.True(t, e.Start.IsZero(), "malformed dates are carried as the zero time")
	}
}

func TestProjectIdempotent(t *testing.T) {
	leads := []calendar.Lead{{ID: "l1", Name: "Jane", DateOfBirth: "1985-03-10", HomeAnniversary: "2019-11-02"}}
	tasks := []calendar.Task{{ID: "t1", Title: "Open house prep", DueDate: "2026-02-01T08:00:00-08:00"}}

	assert.Equal(t, calendar.Project(leads, tasks), calendar.Project(leads, tasks))
}

func TestEffectiveEnd(t *testing.T) {
	start := la(2026, time.January, 15, 10, 0)
	before := start.Add(-time.Hour)

	assert.Equal(t, start.Add(time.Hour), calendar.Event{Start: start}.EffectiveEnd())
	assert.Equal(t, start.Add(time.Hour), calendar.Event{Start: start, End: &before}.EffectiveEnd())
}
