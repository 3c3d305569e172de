package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"brokerdesk/src-server/model"
	"brokerdesk/src-server/utils"

	"github.com/google/uuid"
)

type LeadBody struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Source             string `json:"source"`
	Notes              string `json:"notes"`
	DateOfBirth        string `json:"dateOfBirth"`
	WeddingAnniversary string `json:"weddingAnniversary"`
	HomeAnniversary    string `json:"homeAnniversary"`
}

func leadBodyFrom(m *model.Lead) LeadBody {
	return LeadBody{
		ID:                 m.ID,
		Name:               m.Name,
		Email:              m.Email,
		Phone:              m.Phone,
		Source:             m.Source,
		Notes:              m.Notes,
		DateOfBirth:        m.DateOfBirth,
		WeddingAnniversary: m.WeddingAnniversary,
		HomeAnniversary:    m.HomeAnniversary,
	}
}

func (b LeadBody) apply(m *model.Lead) {
	m.Name = utils.CleanupName(b.Name)
	m.Email = b.Email
	m.Phone = b.Phone
	m.Source = b.Source
	m.Notes = b.Notes
	m.DateOfBirth = b.DateOfBirth
	m.WeddingAnniversary = b.WeddingAnniversary
	m.HomeAnniversary = b.HomeAnniversary
}

func Lead(muxer *http.ServeMux, as *utils.AppState) {
	muxer.HandleFunc("GET /api/leads", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			leadModels := make([]model.Lead, 0)
			if err := as.BunDB.NewSelect().
				Model(&leadModels).
				Where("brokerage_id = ?", brokerage.ID).
				Order("name ASC").
				Scan(r.Context()); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't get leads"))
				slog.Error("can't get leads", "error", err)
				return
			}

			respBody := make([]LeadBody, len(leadModels))
			for i := range leadModels {
				respBody[i] = leadBodyFrom(&leadModels[i])
			}
			writeJSON(w, http.StatusOK, respBody)
		},
	))

	muxer.HandleFunc("POST /api/leads", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			var reqBody LeadBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			leadModel := &model.Lead{ID: uuid.NewString(), BrokerageID: brokerage.ID}
			reqBody.apply(leadModel)

			startTimer := time.Now()
			if err := leadModel.Upsert(r.Context(), as.BunDB); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			observeWrite(as, startTimer)

			writeJSON(w, http.StatusCreated, leadBodyFrom(leadModel))
		},
	))

	muxer.HandleFunc("PUT /api/leads/{id}", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			leadModel, ok := findLead(w, r, as, brokerage.ID, r.PathValue("id"))
			if !ok {
				return
			}

			var reqBody LeadBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			reqBody.apply(leadModel)

			startTimer := time.Now()
			if err := leadModel.Upsert(r.Context(), as.BunDB); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			observeWrite(as, startTimer)

			writeJSON(w, http.StatusOK, leadBodyFrom(leadModel))
		},
	))

	muxer.HandleFunc("DELETE /api/leads/{id}", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			startTimer := time.Now()
			result, err := as.BunDB.NewDelete().
				Model((*model.Lead)(nil)).
				Where("id = ?", r.PathValue("id")).
				Where("brokerage_id = ?", brokerage.ID).
				Exec(r.Context())
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't delete lead"))
				slog.Error("can't delete lead", "error", err)
				return
			}
			if affected, _ := result.RowsAffected(); affected == 0 {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("Lead not found"))
				return
			}
			if _, err := model.BumpRevision(r.Context(), as.BunDB, brokerage.ID); err != nil {
				slog.Error("can't bump brokerage revision", "error", err)
				as.Projector.Forget(brokerage.ID)
			}
			observeWrite(as, startTimer)

			w.WriteHeader(http.StatusNoContent)
		},
	))
}

func findLead(w http.ResponseWriter, r *http.Request, as *utils.AppState, brokerageID, leadID string) (*model.Lead, bool) {
	leadModel := new(model.Lead)
	err := as.BunDB.NewSelect().
		Model(leadModel).
		Where("id = ?", leadID).
		Where("brokerage_id = ?", brokerageID).
		Scan(r.Context())
	switch {
	case errors.Is(err, sql.ErrNoRows):
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Lead not found"))
		return nil, false
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Can't get lead"))
		slog.Error("can't get lead", "error", err)
		return nil, false
	}
	return leadModel, true
}
