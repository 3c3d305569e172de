package route

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"brokerdesk/src-server/model"
	"brokerdesk/src-server/utils"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func Brokerage(muxer *http.ServeMux, as *utils.AppState) {
	type CreateReqBody struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	type StageRespBody struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Position int    `json:"position"`
	}
	type BrokerageRespBody struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Stages []StageRespBody `json:"stages"`
	}

	// create a brokerage together with its default pipeline stages
	muxer.HandleFunc("POST /brokerages", func(w http.ResponseWriter, r *http.Request) {
		var reqBody CreateReqBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		reqBody.Name = strings.TrimSpace(reqBody.Name)
		if reqBody.Name == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a name"))
			return
		}
		if reqBody.ID == "" {
			reqBody.ID = uuid.NewString()
		}

		exists, err := as.BunDB.NewSelect().
			Model((*model.Brokerage)(nil)).
			Where("id = ?", reqBody.ID).
			Exists(r.Context())
		switch {
		case err != nil:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't check if brokerage exists"))
			slog.Error("can't check if brokerage exists", "error", err)
			return
		case exists:
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte("Brokerage already exists"))
			return
		}

		startTimer := time.Now()
		respBody := BrokerageRespBody{ID: reqBody.ID, Name: reqBody.Name, Stages: make([]StageRespBody, 0, len(as.StageNames))}
		if err := as.BunDB.RunInTx(r.Context(), nil, func(ctx context.Context, tx bun.Tx) error {
			brokerage := model.Brokerage{ID: reqBody.ID, Name: reqBody.Name}
			if err := brokerage.Upsert(ctx, tx); err != nil {
				return err
			}
			for i, name := range as.StageNames {
				stage := model.PipelineStage{
					ID:          uuid.NewString(),
					BrokerageID: brokerage.ID,
					Name:        name,
					Position:    i,
				}
				if err := stage.Upsert(ctx, tx); err != nil {
					return err
				}
				respBody.Stages = append(respBody.Stages, StageRespBody{ID: stage.ID, Name: stage.Name, Position: stage.Position})
			}
			return nil
		}); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't create brokerage"))
			slog.Error("can't create brokerage", "error", err)
			return
		}
		observeWrite(as, startTimer)

		writeJSON(w, http.StatusCreated, respBody)
	})

	// delete the calling brokerage and everything it owns
	muxer.HandleFunc("DELETE /api/brokerage", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			startTimer := time.Now()
			// the cascade runs in AfterDelete on the same handle, so no tx here
			if _, err := as.BunDB.NewDelete().
				Model((*model.Brokerage)(nil)).
				Where("id = ?", brokerage.ID).
				Exec(context.WithValue(r.Context(), model.BrokerageIDCtxKey, brokerage.ID)); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't delete brokerage"))
				slog.Error("can't delete brokerage", "error", err)
				return
			}
			observeWrite(as, startTimer)
			as.Projector.Forget(brokerage.ID)

			w.WriteHeader(http.StatusNoContent)
		},
	))
}
