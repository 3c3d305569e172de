package calendar

import (
	"math"
	"sort"
	"time"
)

const (
	DayStartHour      = 6
	DayEndHour        = 22
	BasePixelsPerHour = 100.0

	MinZoom  = 0.6
	MaxZoom  = 2.0
	ZoomStep = 0.2
)

// Zoom scales the day grid. NewZoom, In and Out keep it inside
// [MinZoom, MaxZoom]; a bare conversion does not.
type Zoom float64

func NewZoom(factor float64) Zoom {
	return Zoom(clampZoom(factor))
}

// One step closer.
func (z Zoom) In() Zoom {
	return NewZoom(float64(z) + ZoomStep)
}

// One step further out.
func (z Zoom) Out() Zoom {
	return NewZoom(float64(z) - ZoomStep)
}

func (z Zoom) PixelsPerHour() float64 {
	return BasePixelsPerHour * float64(z)
}

func clampZoom(factor float64) float64 {
	if math.IsNaN(factor) {
		return 1
	}
	// round away float drift from repeated steps
	factor = math.Round(factor*100) / 100
	return math.Min(MaxZoom, math.Max(MinZoom, factor))
}

// Pixel box of an event inside the day grid.
type Geometry struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Layout converts a time range into a box on the 06:00-22:00 grid of the
// start's day. A nil end, or one not after start, means start + 1h.
// Short events never get shorter than half an hour slot.
func Layout(start time.Time, end *time.Time, zoom Zoom) Geometry {
	start = start.In(location)
	stop := start.Add(DefaultTaskDuration)
	if end != nil && end.After(start) {
		stop = end.In(location)
	}

	pxPerMinute := zoom.PixelsPerHour() / 60
	windowStart := dayWindowStart(start)

	return Geometry{
		Top: start.Sub(windowStart).Minutes() * pxPerMinute,
		Height: math.Max(
			zoom.PixelsPerHour()/2,
			stop.Sub(start).Minutes()*pxPerMinute,
		),
	}
}

// 06:00 wall clock on t's civil day. Adding hours to midnight would drift by
// one on DST transition days.
func dayWindowStart(t time.Time) time.Time {
	t = t.In(location)
	return time.Date(t.Year(), t.Month(), t.Day(), DayStartHour, 0, 0, 0, location)
}

// Full height of the visible window.
func GridHeight(zoom Zoom) float64 {
	return float64(DayEndHour-DayStartHour) * zoom.PixelsPerHour()
}

// NowOffset places the "current time" line. ok is false outside the
// visible window.
func NowOffset(now time.Time, zoom Zoom) (offset float64, ok bool) {
	now = now.In(location)
	windowStart := dayWindowStart(now)
	offset = now.Sub(windowStart).Minutes() * zoom.PixelsPerHour() / 60
	return offset, offset >= 0 && offset <= GridHeight(zoom)
}

type TimedBox struct {
	Occurrence
	Geometry
}

type Day struct {
	Date   time.Time    `json:"date"`
	AllDay []Occurrence `json:"allDay"`
	Timed  []TimedBox   `json:"timed"`
}

// DayView picks the occurrences of one civil day and lays out the timed ones.
func DayView(occurrences []Occurrence, day time.Time, zoom Zoom) Day {
	view := Day{
		Date:   StartOfDay(day),
		AllDay: make([]Occurrence, 0),
		Timed:  make([]TimedBox, 0),
	}
	for _, o := range OnDay(occurrences, day) {
		if o.AllDay {
			view.AllDay = append(view.AllDay, o)
			continue
		}
		view.Timed = append(view.Timed, TimedBox{
			Occurrence: o,
			Geometry:   Layout(o.Start, o.End, zoom),
		})
	}
	sort.SliceStable(view.Timed, func(i, j int) bool {
		return view.Timed[i].Top < view.Timed[j].Top
	})
	return view
}
