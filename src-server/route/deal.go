package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"brokerdesk/src-server/model"
	"brokerdesk/src-server/pipeline"
	"brokerdesk/src-server/utils"

	"github.com/google/uuid"
)

type DealBody struct {
	ID              string          `json:"id"`
	StageID         string          `json:"stageId"`
	LeadID          string          `json:"leadId"`
	Position        int             `json:"position"`
	Title           string          `json:"title"`
	Address         string          `json:"address"`
	Status          pipeline.Status `json:"status"`
	Source          string          `json:"source"`
	PriceCents      int64           `json:"priceCents"`
	CommissionCents int64           `json:"commissionCents"`
	ExpectedClose   string          `json:"expectedClose"`
	ClosedAt        *time.Time      `json:"closedAt,omitempty"`
}

func dealBodyFrom(m *model.Deal) DealBody {
	body := DealBody{
		ID:              m.ID,
		StageID:         m.StageID,
		LeadID:          m.LeadID,
		Position:        m.Position,
		Title:           m.Title,
		Address:         m.Address,
		Status:          m.Status,
		Source:          m.Source,
		PriceCents:      m.PriceCents,
		CommissionCents: m.CommissionCents,
		ExpectedClose:   m.ExpectedClose,
	}
	if m.ClosedAt != 0 {
		closedAt := time.Unix(m.ClosedAt, 0).UTC()
		body.ClosedAt = &closedAt
	}
	return body
}

// Status and placement have their own endpoints and are left alone here.
func (b DealBody) apply(m *model.Deal) {
	m.LeadID = b.LeadID
	m.Title = b.Title
	m.Address = b.Address
	m.Source = b.Source
	m.PriceCents = b.PriceCents
	m.CommissionCents = b.CommissionCents
	m.ExpectedClose = b.ExpectedClose
}

func Deal(muxer *http.ServeMux, as *utils.AppState) {
	type StatusReqBody struct {
		Status pipeline.Status `json:"status"`
	}

	muxer.HandleFunc("GET /api/deals", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			dealModels, err := model.ListDeals(r.Context(), as.BunDB, brokerage.ID)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't get deals"))
				slog.Error("can't get deals", "error", err)
				return
			}

			status := pipeline.Status(r.URL.Query().Get("status"))
			respBody := make([]DealBody, 0, len(dealModels))
			for i := range dealModels {
				if status != "" && dealModels[i].Status != status {
					continue
				}
				respBody = append(respBody, dealBodyFrom(&dealModels[i]))
			}
			writeJSON(w, http.StatusOK, respBody)
		},
	))

	muxer.HandleFunc("POST /api/deals", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			var reqBody DealBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			// #region - place the deal at the bottom of its stage
			if reqBody.StageID == "" {
				stages, err := model.ListStages(r.Context(), as.BunDB, brokerage.ID)
				if err != nil {
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte("Can't get pipeline stages"))
					slog.Error("can't get pipeline stages", "error", err)
					return
				}
				if len(stages) == 0 {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Brokerage has no pipeline stages"))
					return
				}
				reqBody.StageID = stages[0].ID
			}
			position, err := as.BunDB.NewSelect().
				Model((*model.Deal)(nil)).
				Where("brokerage_id = ?", brokerage.ID).
				Where("stage_id = ?", reqBody.StageID).
				Count(r.Context())
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't count deals in stage"))
				slog.Error("can't count deals in stage", "error", err)
				return
			}
			// #endregion

			dealModel := &model.Deal{
				ID:          uuid.NewString(),
				BrokerageID: brokerage.ID,
				StageID:     reqBody.StageID,
				Position:    position,
				Status:      pipeline.StatusActive,
			}
			reqBody.apply(dealModel)

			startTimer := time.Now()
			if err := dealModel.Upsert(r.Context(), as.BunDB); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			observeWrite(as, startTimer)

			writeJSON(w, http.StatusCreated, dealBodyFrom(dealModel))
		},
	))

	muxer.HandleFunc("PUT /api/deals/{id}", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}
			dealModel, ok := findDeal(w, r, as, brokerage.ID, r.PathValue("id"))
			if !ok {
				return
			}

			var reqBody DealBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			reqBody.apply(dealModel)

			startTimer := time.Now()
			if err := dealModel.Upsert(r.Context(), as.BunDB); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			observeWrite(as, startTimer)

			writeJSON(w, http.StatusOK, dealBodyFrom(dealModel))
		},
	))

	muxer.HandleFunc("POST /api/deals/{id}/status", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}
			dealModel, ok := findDeal(w, r, as, brokerage.ID, r.PathValue("id"))
			if !ok {
				return
			}

			var reqBody StatusReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if !reqBody.Status.Valid() {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Unknown status"))
				return
			}

			next, err := pipeline.Transition(dealModel.Status, reqBody.Status)
			if err != nil {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(err.Error()))
				return
			}
			dealModel.Status = next

			startTimer := time.Now()
			if err := dealModel.Upsert(r.Context(), as.BunDB); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't update deal status"))
				slog.Error("can't update deal status", "error", err)
				return
			}
			observeWrite(as, startTimer)

			writeJSON(w, http.StatusOK, dealBodyFrom(dealModel))
		},
	))
}

func findDeal(w http.ResponseWriter, r *http.Request, as *utils.AppState, brokerageID, dealID string) (*model.Deal, bool) {
	dealModel := new(model.Deal)
	err := as.BunDB.NewSelect().
		Model(dealModel).
		Where("id = ?", dealID).
		Where("brokerage_id = ?", brokerageID).
		Scan(r.Context())
	switch {
	case errors.Is(err, sql.ErrNoRows):
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Deal not found"))
		return nil, false
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Can't get deal"))
		slog.Error("can't get deal", "error", err)
		return nil, false
	}
	return dealModel, true
}
