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

type TaskBody struct {
	ID      string `json:"id"`
	LeadID  string `json:"leadId"`
	DealID  string `json:"dealId"`
	Title   string `json:"title"`
	Notes   string `json:"notes"`
	DueDate string `json:"dueDate"`
	EndDate string `json:"endDate"`

	Completed    bool `json:"completed"`
	ReminderSent bool `json:"reminderSent"`
}

func taskBodyFrom(m *model.Task) TaskBody {
	return TaskBody{
		ID:           m.ID,
		LeadID:       m.LeadID,
		DealID:       m.DealID,
		Title:        m.Title,
		Notes:        m.Notes,
		DueDate:      m.DueDate,
		EndDate:      m.EndDate,
		Completed:    m.Completed,
		ReminderSent: m.ReminderSent,
	}
}

// apply copies the editable fields onto m. Due and end dates may be natural
// language and are resolved against now.
func (b TaskBody) apply(as *utils.AppState, m *model.Task, now time.Time) error {
	dueDate, err := utils.ResolveDate(as.When, b.DueDate, now)
	if err != nil {
		return err
	}
	endDate, err := utils.ResolveDate(as.When, b.EndDate, now)
	if err != nil {
		return err
	}
	if dueDate != m.DueDate {
		// a moved task deserves a fresh reminder
		m.ReminderSent = false
	}

	m.LeadID = b.LeadID
	m.DealID = b.DealID
	m.Title = b.Title
	m.Notes = b.Notes
	m.DueDate = dueDate
	m.EndDate = endDate
	if m.Completed != b.Completed {
		m.Completed = b.Completed
		m.CompletedAt = 0
	}
	return nil
}

func Task(muxer *http.ServeMux, as *utils.AppState) {
	muxer.HandleFunc("GET /api/tasks", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			taskModels := make([]model.Task, 0)
			query := as.BunDB.NewSelect().
				Model(&taskModels).
				Where("brokerage_id = ?", brokerage.ID).
				Order("due_unix_utc ASC", "id ASC")
			switch r.URL.Query().Get("completed") {
			case "true":
				query = query.Where("completed = ?", true)
			case "false":
				query = query.Where("completed = ?", false)
			}

			if err := query.Scan(r.Context()); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't get tasks"))
				slog.Error("can't get tasks", "error", err)
				return
			}

			respBody := make([]TaskBody, len(taskModels))
			for i := range taskModels {
				respBody[i] = taskBodyFrom(&taskModels[i])
			}
			writeJSON(w, http.StatusOK, respBody)
		},
	))

	muxer.HandleFunc("POST /api/tasks", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			var reqBody TaskBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			taskModel := &model.Task{ID: uuid.NewString(), BrokerageID: brokerage.ID}
			if err := reqBody.apply(as, taskModel, time.Now()); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}

			startTimer := time.Now()
			if err := taskModel.Upsert(r.Context(), as.BunDB); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			observeWrite(as, startTimer)

			writeJSON(w, http.StatusCreated, taskBodyFrom(taskModel))
		},
	))

	muxer.HandleFunc("PUT /api/tasks/{id}", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}
			taskModel, ok := findTask(w, r, as, brokerage.ID, r.PathValue("id"))
			if !ok {
				return
			}

			var reqBody TaskBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}
			if err := reqBody.apply(as, taskModel, time.Now()); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}

			startTimer := time.Now()
			if err := taskModel.Upsert(r.Context(), as.BunDB); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(err.Error()))
				return
			}
			observeWrite(as, startTimer)

			writeJSON(w, http.StatusOK, taskBodyFrom(taskModel))
		},
	))

	muxer.HandleFunc("POST /api/tasks/{id}/complete", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}
			taskModel, ok := findTask(w, r, as, brokerage.ID, r.PathValue("id"))
			if !ok {
				return
			}

			if !taskModel.Completed {
				taskModel.Completed = true
				startTimer := time.Now()
				if err := taskModel.Upsert(r.Context(), as.BunDB); err != nil {
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte("Can't complete task"))
					slog.Error("can't complete task", "error", err)
					return
				}
				observeWrite(as, startTimer)
			}

			writeJSON(w, http.StatusOK, taskBodyFrom(taskModel))
		},
	))

	muxer.HandleFunc("DELETE /api/tasks/{id}", TenantMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			brokerage, ok := brokerageFrom(w, r)
			if !ok {
				return
			}

			startTimer := time.Now()
			result, err := as.BunDB.NewDelete().
				Model((*model.Task)(nil)).
				Where("id = ?", r.PathValue("id")).
				Where("brokerage_id = ?", brokerage.ID).
				Exec(r.Context())
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't delete task"))
				slog.Error("can't delete task", "error", err)
				return
			}
			if affected, _ := result.RowsAffected(); affected == 0 {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("Task not found"))
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

func findTask(w http.ResponseWriter, r *http.Request, as *utils.AppState, brokerageID, taskID string) (*model.Task, bool) {
	taskModel := new(model.Task)
	err := as.BunDB.NewSelect().
		Model(taskModel).
		Where("id = ?", taskID).
		Where("brokerage_id = ?", brokerageID).
		Scan(r.Context())
	switch {
	case errors.Is(err, sql.ErrNoRows):
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Task not found"))
		return nil, false
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Can't get task"))
		slog.Error("can't get task", "error", err)
		return nil, false
	}
	return taskModel, true
}
