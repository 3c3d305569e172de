package route

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"brokerdesk/src-server/model"
	"brokerdesk/src-server/pipeline"
	"brokerdesk/src-server/utils"

	"github.com/uptrace/bun"
)

type ColumnRespBody struct {
	StageID string     `json:"stageId"`
	Name    string     `json:"name"`
	Deals   []DealBody `json:"deals"`
}

type MonthGroupRespBody struct {
	Key string `json:"key"`
	// "January 2026", or "Unscheduled"
	Label string `json:"label"`
	// first instant of the month, absent for unscheduled deals
	Start *time.Time `json:"start,omitempty"`
	Deals []DealBody `json:"deals"`
}

func loadBoard(ctx context.Context, db bun.IDB, brokerageID string) (pipeline.Board, map[string]*model.Deal, error) {
	stageModels, err := model.ListStages(ctx, db, brokerageID)
	if err != nil {
		return pipeline.Board{}, nil, err
	}
	dealModels, err := model.ListDeals(ctx, db, brokerageID)
	if err != nil {
		return pipeline.Board{}, nil, err
	}

	stages := make([]pipeline.Stage, len(stageModels))
	for i := range stageModels {
		stages[i] = stageModels[i].ToPipeline()
	}
	deals := make([]pipeline.Deal, len(dealModels))
	byID := make(map[string]*model.Deal, len(dealModels))
	for i := range dealModels {
		deals[i] = dealModels[i].ToPipeline()
		byID[dealModels[i].ID] = &dealModels[i]
	}
	return pipeline.BuildBoard(stages, deals), byID, nil
}

func boardRespBody(board pipeline.Board, deals map[string]*model.Deal) []ColumnRespBody {
	respBody := make([]ColumnRespBody, len(board.Columns))
	for i, col := range board.Columns {
		respBody[i] = ColumnRespBody{StageID: col.StageID, Name: col.Name, Deals: make([]DealBody, 0, len(col.DealIDs))}
		for position, id := range col.DealIDs {
			deal, ok := deals[id]
			if !ok {
				continue
			}
			body := dealBodyFrom(deal)
			body.StageID = col.StageID
			body.Position = position
			respBody[i].Deals = append(respBody[i].Deals, body)
		}
	}
	return respBody
}

func Pipeline(muxer *http.ServeMux, as *utils.AppState) {
	// applies one board action and writes the new arrangement back
	applyAction := func(w http.ResponseWriter, r *http.Request, brokerageID string, action pipeline.Action) {
		startTimer := time.Now()
		var board pipeline.Board
		var deals map[string]*model.Deal
		err := as.BunDB.RunInTx(r.Context(), nil, func(ctx context.Context, tx bun.Tx) error {
			current, byID, err := loadBoard(ctx, tx, brokerageID)
			if err != nil {
				return err
			}
			if board, err = pipeline.Apply(current, action); err != nil {
				return err
			}
			deals = byID
			if err := model.SaveStageOrder(ctx, tx, brokerageID, board.StageOrder()); err != nil {
				return err
			}
			return model.SavePlacements(ctx, tx, brokerageID, board.Slots())
		})
		switch {
		case errors.Is(err, pipeline.ErrDealNotFound), errors.Is(err, pipeline.ErrStageNotFound):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(err.Error()))
			return
		case errors.Is(err, pipeline.ErrIndexOutOfRange):
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(err.Error()))
			return
		case err != nil:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't update pipeline"))
			slog.Error("can't update pipeline", "error", err)
			return
		}
		observeWrite(as, startTimer)

		writeJSON(w, http.StatusOK, boardRespBody(board, deals))
	}

	muxer.HandleFunc("GET /api/pipeline", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			board, deals, err := loadBoard(r.Context(), as.BunDB, brokerage.ID)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't get pipeline"))
				slog.Error("can't get pipeline", "error", err)
				return
			}
			writeJSON(w, http.StatusOK, boardRespBody(board, deals))
		},
	))

	muxer.HandleFunc("POST /api/pipeline/move", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			var action pipeline.MoveDeal
			if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if action.DealID == "" || action.ToStage == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Please provide a deal and a target stage"))
				return
			}
			applyAction(w, r, brokerage.ID, action)
		},
	))

	muxer.HandleFunc("POST /api/pipeline/stages/reorder", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			var action pipeline.MoveStage
			if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			applyAction(w, r, brokerage.ID, action)
		},
	))

	// deals grouped by the month they are expected to close
	muxer.HandleFunc("GET /api/pipeline/months", TenantMiddleware(as,
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

			deals := make([]pipeline.Deal, 0, len(dealModels))
			byID := make(map[string]*model.Deal, len(dealModels))
			for i := range dealModels {
				if dealModels[i].Status == pipeline.StatusClosed && r.URL.Query().Get("closed") != "true" {
					continue
				}
				deals = append(deals, dealModels[i].ToPipeline())
				byID[dealModels[i].ID] = &dealModels[i]
			}

			groups := pipeline.GroupByMonth(deals)
			respBody := make([]MonthGroupRespBody, len(groups))
			for i, group := range groups {
				respBody[i] = MonthGroupRespBody{Key: group.Key, Label: "Unscheduled", Deals: make([]DealBody, len(group.Deals))}
				if group.Key != pipeline.UnscheduledKey {
					start, err := pipeline.MonthStart(group.Key)
					if err != nil {
						w.WriteHeader(http.StatusInternalServerError)
						w.Write([]byte("Can't read month group"))
						slog.Error("can't read month group", "key", group.Key, "error", err)
						return
					}
					respBody[i].Label = start.Format("January 2006")
					respBody[i].Start = &start
				}
				for j, deal := range group.Deals {
					respBody[i].Deals[j] = dealBodyFrom(byID[deal.ID])
				}
			}
			writeJSON(w, http.StatusOK, respBody)
		},
	))
}
