package route

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"brokerdesk/src-server/calendar"
	"brokerdesk/src-server/model"
	"brokerdesk/src-server/utils"
)

// Ical serves a subscribable feed. Calendar apps can't send headers, so the
// brokerage comes from the path instead of TenantMiddleware.
func Ical(muxer *http.ServeMux, as *utils.AppState) {
	muxer.HandleFunc("GET /ical/{brokerage_id}", func(w http.ResponseWriter, r *http.Request) {
		brokerage := new(model.Brokerage)
		err := as.BunDB.NewSelect().
			Model(brokerage).
			Where("id = ?", r.PathValue("brokerage_id")).
			Scan(r.Context())
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "Brokerage not found", http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		events, err := projectedEvents(r.Context(), as, brokerage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, calendar.ICal(brokerage.Name, events, time.Now())); err != nil {
			slog.Warn("can't write to response", "where", "route/ical.go", "err", err)
		}
	})
}

func Ping(muxer *http.ServeMux, as *utils.AppState) {
	type PingRespBody struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	muxer.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, PingRespBody{Status: "ok", Uptime: as.GetUptime().String()})
	})
}
