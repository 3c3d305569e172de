package calendar

import "time"

// MonthGrid builds the cells of a Sunday-first, 7-column month view.
// monthIndex is zero-based and may overflow into neighbouring years the
// same way time.Date normalises it.
//
// A nil cell is a leading blank; the rest hold day numbers 1..N. The grid
// is not padded at the end.
func MonthGrid(year, monthIndex int) []*int {
	first := time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, time.UTC)
	// day zero of the next month is the last day of this one
	daysInMonth := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	leading := int(first.Weekday())

	cells := make([]*int, leading, leading+daysInMonth)
	for day := 1; day <= daysInMonth; day++ {
		day := day
		cells = append(cells, &day)
	}
	return cells
}
