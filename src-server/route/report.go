package route

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"brokerdesk/src-server/calendar"
	"brokerdesk/src-server/model"
	"brokerdesk/src-server/pipeline"
	"brokerdesk/src-server/report"
	"brokerdesk/src-server/utils"
)

func Report(muxer *http.ServeMux, as *utils.AppState) {
	type ClosingsRespBody struct {
		Year   int                    `json:"year"`
		Months []report.MonthClosings `json:"months"`
	}

	listDeals := func(w http.ResponseWriter, r *http.Request, brokerageID string) ([]pipeline.Deal, bool) {
		dealModels, err := model.ListDeals(r.Context(), as.BunDB, brokerageID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get deals"))
			slog.Error("can't get deals", "error", err)
			return nil, false
		}
		deals := make([]pipeline.Deal, len(dealModels))
		for i := range dealModels {
			deals[i] = dealModels[i].ToPipeline()
		}
		return deals, true
	}

	muxer.HandleFunc("GET /api/reports/summary", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}
			deals, ok := listDeals(w, r, brokerage.ID)
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, report.Summarize(deals))
		},
	))

	muxer.HandleFunc("GET /api/reports/lead-sources", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			sources := make([]string, 0)
			if err := as.BunDB.NewSelect().
				Model((*model.Lead)(nil)).
				Column("source").
				Where("brokerage_id = ?", brokerage.ID).
				Scan(r.Context(), &sources); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't get lead sources"))
				slog.Error("can't get lead sources", "error", err)
				return
			}
			writeJSON(w, http.StatusOK, report.LeadSources(sources))
		},
	))

	muxer.HandleFunc("GET /api/reports/closings", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			year := time.Now().In(calendar.Location()).Year()
			if raw := r.URL.Query().Get("year"); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Invalid year"))
					return
				}
				year = parsed
			}

			deals, ok := listDeals(w, r, brokerage.ID)
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, ClosingsRespBody{Year: year, Months: report.ClosingsByMonth(deals, year)})
		},
	))
}
