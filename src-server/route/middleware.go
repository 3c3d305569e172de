package route

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"brokerdesk/src-server/model"
	"brokerdesk/src-server/utils"
)

type BrokerageCtxKeyType string

const (
	BrokerageCtxKey    BrokerageCtxKeyType = "brokerage"
	BrokerageIDHeader  string              = "X-Brokerage-ID"
	maxRequestBodySize int64               = 1 << 20
)

// TenantMiddleware resolves the X-Brokerage-ID header to a brokerage and
// puts it in the request context. Who may act for that brokerage is decided
// in front of this service.
func TenantMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		brokerageID := strings.TrimSpace(r.Header.Get(BrokerageIDHeader))
		if brokerageID == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(BrokerageIDHeader + " header not found"))
			return
		}

		startTimer := time.Now()
		brokerage := new(model.Brokerage)
		err := as.BunDB.NewSelect().
			Model(brokerage).
			Where("id = ?", brokerageID).
			Scan(r.Context())
		switch {
		case errors.Is(err, sql.ErrNoRows):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Brokerage not found"))
			return
		case err != nil:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get brokerage from DB"))
			slog.Error("can't get brokerage from DB", "error", err)
			return
		}
		as.MetricChans.Observe(as.MetricChans.DatabaseRead, float64(time.Since(startTimer).Microseconds()))

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		ctx := context.WithValue(r.Context(), BrokerageCtxKey, brokerage)
		next(w, r.WithContext(ctx))
	}
}

func brokerageFrom(w http.ResponseWriter, r *http.Request) (*model.Brokerage, bool) {
	brokerage, ok := r.Context().Value(BrokerageCtxKey).(*model.Brokerage)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Can't get brokerage from middleware"))
		return nil, false
	}
	return brokerage, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("can't write response", "error", err)
	}
}

// observeWrite reports how long a write that began at start took.
func observeWrite(as *utils.AppState, start time.Time) {
	as.MetricChans.Observe(as.MetricChans.DatabaseWrite, float64(time.Since(start).Microseconds()))
}
