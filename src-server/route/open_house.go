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

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Source given to leads first met at an open house.
const OpenHouseLeadSource = "open house"

func OpenHouse(muxer *http.ServeMux, as *utils.AppState) {
	type OpenHouseBody struct {
		ID       string `json:"id"`
		DealID   string `json:"dealId"`
		Address  string `json:"address"`
		StartsAt string `json:"startsAt"`
		EndsAt   string `json:"endsAt"`
	}
	type CheckInBody struct {
		ID        string `json:"id"`
		LeadID    string `json:"leadId"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Agent     string `json:"agent"`
		CreatedAt int64  `json:"createdAtUnixUTC"`
		NewLead   bool   `json:"newLead"`
	}

	toOpenHouseBody := func(m *model.OpenHouse) OpenHouseBody {
		return OpenHouseBody{ID: m.ID, DealID: m.DealID, Address: m.Address, StartsAt: m.StartsAt, EndsAt: m.EndsAt}
	}

	findOpenHouse := func(w http.ResponseWriter, r *http.Request, brokerageID string) (*model.OpenHouse, bool) {
		openHouseModel := new(model.OpenHouse)
		err := as.BunDB.NewSelect().
			Model(openHouseModel).
			Where("id = ?", r.PathValue("id")).
			Where("brokerage_id = ?", brokerageID).
			Scan(r.Context())
		switch {
		case errors.Is(err, sql.ErrNoRows):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Open house not found"))
			return nil, false
		case err != nil:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get open house"))
			slog.Error("can't get open house", "error", err)
			return nil, false
		}
		return openHouseModel, true
	}

	muxer.HandleFunc("GET /api/open-houses", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			openHouseModels := make([]model.OpenHouse, 0)
			if err := as.BunDB.NewSelect().
				Model(&openHouseModels).
				Where("brokerage_id = ?", brokerage.ID).
				Order("starts_at ASC").
				Scan(r.Context()); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't get open houses"))
				slog.Error("can't get open houses", "error", err)
				return
			}

			respBody := make([]OpenHouseBody, len(openHouseModels))
			for i := range openHouseModels {
				respBody[i] = toOpenHouseBody(&openHouseModels[i])
			}
			writeJSON(w, http.StatusOK, respBody)
		},
	))

	muxer.HandleFunc("POST /api/open-houses", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			var reqBody OpenHouseBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			now := time.Now()
			startsAt, err := utils.ResolveDate(as.When, reqBody.StartsAt, now)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			endsAt, err := utils.ResolveDate(as.When, reqBody.EndsAt, now)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}

			openHouseModel := &model.OpenHouse{
				ID:          uuid.NewString(),
				BrokerageID: brokerage.ID,
				DealID:      reqBody.DealID,
				Address:     strings.TrimSpace(reqBody.Address),
				StartsAt:    startsAt,
				EndsAt:      endsAt,
			}
			startTimer := time.Now()
			if err := openHouseModel.Upsert(r.Context(), as.BunDB); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			observeWrite(as, startTimer)

			writeJSON(w, http.StatusCreated, toOpenHouseBody(openHouseModel))
		},
	))

	muxer.HandleFunc("DELETE /api/open-houses/{id}", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}
			openHouseModel, ok := findOpenHouse(w, r, brokerage.ID)
			if !ok {
				return
			}

			startTimer := time.Now()
			if _, err := as.BunDB.NewDelete().
				Model((*model.OpenHouse)(nil)).
				Where("id = ?", openHouseModel.ID).
				Exec(context.WithValue(r.Context(), model.OpenHouseIDCtxKey, openHouseModel.ID)); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't delete open house"))
				slog.Error("can't delete open house", "error", err)
				return
			}
			observeWrite(as, startTimer)

			w.WriteHeader(http.StatusNoContent)
		},
	))

	// sign a visitor in, linking them to an existing lead by email or
	// creating one
	muxer.HandleFunc("POST /api/open-houses/{id}/check-ins", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}
			openHouseModel, ok := findOpenHouse(w, r, brokerage.ID)
			if !ok {
				return
			}

			var reqBody CheckInBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			reqBody.Name = utils.CleanupName(reqBody.Name)
			reqBody.Email = strings.ToLower(strings.TrimSpace(reqBody.Email))
			if reqBody.Name == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide a name"))
				return
			}

			startTimer := time.Now()
			checkInModel := &model.CheckIn{
				ID:          uuid.NewString(),
				OpenHouseID: openHouseModel.ID,
				BrokerageID: brokerage.ID,
				Name:        reqBody.Name,
				Email:       reqBody.Email,
				Phone:       strings.TrimSpace(reqBody.Phone),
				Agent:       strings.TrimSpace(reqBody.Agent),
			}
			newLead := false
			if err := as.BunDB.RunInTx(r.Context(), nil, func(ctx context.Context, tx bun.Tx) error {
				var lead *model.Lead
				if checkInModel.Email != "" {
					found, err := model.FindLeadByEmail(ctx, tx, brokerage.ID, checkInModel.Email)
					if err != nil {
						return err
					}
					lead = found
				}
				if lead == nil {
					lead = &model.Lead{
						ID:          uuid.NewString(),
						BrokerageID: brokerage.ID,
						Name:        checkInModel.Name,
						Email:       checkInModel.Email,
						Phone:       checkInModel.Phone,
						Source:      OpenHouseLeadSource,
						Notes:       "Checked in at " + openHouseModel.Address,
					}
					if err := lead.Upsert(ctx, tx); err != nil {
						return err
					}
					newLead = true
				}
				checkInModel.LeadID = lead.ID
				return checkInModel.Insert(ctx, tx)
			}); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			observeWrite(as, startTimer)

			writeJSON(w, http.StatusCreated, CheckInBody{
				ID:        checkInModel.ID,
				LeadID:    checkInModel.LeadID,
				Name:      checkInModel.Name,
				Email:     checkInModel.Email,
				Phone:     checkInModel.Phone,
				Agent:     checkInModel.Agent,
				CreatedAt: checkInModel.CreatedAt,
				NewLead:   newLead,
			})
		},
	))

	muxer.HandleFunc("GET /api/open-houses/{id}/check-ins", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}
			openHouseModel := new(model.OpenHouse)
			err := as.BunDB.NewSelect().
				Model(openHouseModel).
				Where("id = ?", r.PathValue("id")).
				Where("brokerage_id = ?", brokerage.ID).
				Relation("CheckIns", func(q *bun.SelectQuery) *bun.SelectQuery {
					return q.Order("created_at ASC", "id ASC")
				}).
				Scan(r.Context())
			switch {
			case errors.Is(err, sql.ErrNoRows):
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("Open house not found"))
				return
			case err != nil:
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't get check-ins"))
				slog.Error("can't get check-ins", "error", err)
				return
			}
			checkInModels := openHouseModel.CheckIns

			respBody := make([]CheckInBody, len(checkInModels))
			for i, c := range checkInModels {
				respBody[i] = CheckInBody{
					ID:        c.ID,
					LeadID:    c.LeadID,
					Name:      c.Name,
					Email:     c.Email,
					Phone:     c.Phone,
					Agent:     c.Agent,
					CreatedAt: c.CreatedAt,
				}
			}
			writeJSON(w, http.StatusOK, respBody)
		},
	))
}
