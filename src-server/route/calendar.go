package route

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"brokerdesk/src-server/calendar"
	"brokerdesk/src-server/model"
	"brokerdesk/src-server/utils"
)

// projectedEvents returns the brokerage's calendar events, rebuilt only when
// its revision moved.
func projectedEvents(ctx context.Context, as *utils.AppState, brokerage *model.Brokerage) ([]calendar.Event, error) {
	return as.Projector.Events(
		calendar.ProjectionKey{BrokerageID: brokerage.ID, Revision: brokerage.Revision},
		func() ([]calendar.Lead, []calendar.Task, error) {
			startTimer := time.Now()
			defer func() {
				as.MetricChans.Observe(as.MetricChans.DatabaseRead, float64(time.Since(startTimer).Microseconds()))
			}()
			return model.LoadCalendarSources(ctx, as.BunDB, brokerage.ID)
		},
	)
}

func Calendar(muxer *http.ServeMux, as *utils.AppState) {
	type MonthRespBody struct {
		Year        int                   `json:"year"`
		Month       int                   `json:"month"`
		Cells       []*int                `json:"cells"`
		Occurrences []calendar.Occurrence `json:"occurrences"`
	}
	type DayRespBody struct {
		calendar.Day
		Zoom          calendar.Zoom `json:"zoom"`
		PixelsPerHour float64       `json:"pixelsPerHour"`
		GridHeight    float64       `json:"gridHeight"`
		// nil unless the day is today and now is inside the visible hours
		NowOffset *float64 `json:"nowOffset"`
	}

	// month grid plus every occurrence in the month; month is 1-12
	muxer.HandleFunc("GET /api/calendar/month", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			// #region - parse year & month
			now := time.Now().In(calendar.Location())
			year, month := now.Year(), int(now.Month())
			if raw := r.URL.Query().Get("year"); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil || parsed < 1 || parsed > 9999 {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Invalid year"))
					return
				}
				year = parsed
			}
			if raw := r.URL.Query().Get("month"); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil || parsed < 1 || parsed > 12 {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Invalid month, expected 1-12"))
					return
				}
				month = parsed
			}
			// #endregion

			events, err := projectedEvents(r.Context(), as, brokerage)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't build calendar"))
				slog.Error("can't build calendar", "error", err)
				return
			}
			occurrences, err := calendar.Occurrences(events, year, month-1)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't place calendar events"))
				slog.Error("can't place calendar events", "error", err)
				return
			}

			writeJSON(w, http.StatusOK, MonthRespBody{
				Year:        year,
				Month:       month,
				Cells:       calendar.MonthGrid(year, month-1),
				Occurrences: occurrences,
			})
		},
	))

	muxer.HandleFunc("GET /api/calendar/day", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			// #region - parse date & zoom
			now := time.Now().In(calendar.Location())
			day := calendar.StartOfDay(now)
			if raw := r.URL.Query().Get("date"); raw != "" {
				parsed, err := time.ParseInLocation(time.DateOnly, raw, calendar.Location())
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Invalid date, expected YYYY-MM-DD"))
					return
				}
				day = parsed
			}
			zoom := calendar.NewZoom(1)
			if raw := r.URL.Query().Get("zoom"); raw != "" {
				factor, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Invalid zoom"))
					return
				}
				zoom = calendar.NewZoom(factor)
			}
			// #endregion

			events, err := projectedEvents(r.Context(), as, brokerage)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't build calendar"))
				slog.Error("can't build calendar", "error", err)
				return
			}
			occurrences, err := calendar.Occurrences(events, day.Year(), int(day.Month())-1)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't place calendar events"))
				slog.Error("can't place calendar events", "error", err)
				return
			}

			respBody := DayRespBody{
				Day:           calendar.DayView(occurrences, day, zoom),
				Zoom:          zoom,
				PixelsPerHour: zoom.PixelsPerHour(),
				GridHeight:    calendar.GridHeight(zoom),
			}
			if calendar.SameDay(now, day) {
				if offset, ok := calendar.NowOffset(now, zoom); ok {
					respBody.NowOffset = &offset
				}
			}
			writeJSON(w, http.StatusOK, respBody)
		},
	))
}
