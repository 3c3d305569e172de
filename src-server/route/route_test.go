package route_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brokerdesk/src-server/calendar"
	"brokerdesk/src-server/model/modeltest"
	"brokerdesk/src-server/route"
	"brokerdesk/src-server/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	as      *utils.AppState
}

func newServer(t *testing.T) *testServer {
	t.Helper()

	as := utils.NewAppStateWithDB(utils.DefaultConfig(), modeltest.NewDB(t))
	muxer := http.NewServeMux()
	route.Ping(muxer, as)
	route.Brokerage(muxer, as)
	route.Lead(muxer, as)
	route.Task(muxer, as)
	route.Deal(muxer, as)
	route.Pipeline(muxer, as)
	route.OpenHouse(muxer, as)
	route.Calendar(muxer, as)
	route.Report(muxer, as)
	route.Ical(muxer, as)
	return &testServer{t: t, handler: muxer, as: as}
}

func (s *testServer) do(brokerageID, method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if brokerageID != "" {
		req.Header.Set(route.BrokerageIDHeader, brokerageID)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// decode fails the test unless the response has the wanted status.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder, status int) T {
	t.Helper()

	var out T
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) brokerage(id string) []stage {
	s.t.Helper()

	type resp struct {
		Stages []stage `json:"stages"`
	}
	created := decode[resp](s.t, s.do("", http.MethodPost, "/brokerages", map[string]string{"id": id, "name": "Acme Realty"}), http.StatusCreated)
	return created.Stages
}

func TestBrokerage(t *testing.T) {
	s := newServer(t)

	stages := s.brokerage("b1")
	require.Len(t, stages, len(utils.DefaultStageNames))
	for i, st := range stages {
		assert.Equal(t, utils.DefaultStageNames[i], st.Name)
		assert.Equal(t, i, st.Position)
	}

	assert.Equal(t, http.StatusConflict, s.do("", http.MethodPost, "/brokerages", map[string]string{"id": "b1", "name": "Again"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("", http.MethodPost, "/brokerages", map[string]string{"name": " "}).Code)

	assert.Equal(t, http.StatusUnauthorized, s.do("", http.MethodGet, "/api/leads", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do("nope", http.MethodGet, "/api/leads", nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do("b1", http.MethodDelete, "/api/brokerage", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do("b1", http.MethodGet, "/api/leads", nil).Code)
}

func TestLeadsAndCalendarMonth(t *testing.T) {
	s := newServer(t)
	s.brokerage("b1")
	s.brokerage("b2")

	type lead struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		DateOfBirth string `json:"dateOfBirth"`
	}
	created := decode[lead](t, s.do("b1", http.MethodPost, "/api/leads", map[string]string{
		"name":        "  jane   doe ",
		"dateOfBirth": "1985-03-10",
	}), http.StatusCreated)
	assert.Equal(t, "Jane Doe", created.Name)

	type occurrence struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Years int    `json:"years"`
	}
	type month struct {
		Cells       []*int       `json:"cells"`
		Occurrences []occurrence `json:"occurrences"`
	}

	march := decode[month](t, s.do("b1", http.MethodGet, "/api/calendar/month?year=2026&month=3", nil), http.StatusOK)
	require.Len(t, march.Occurrences, 1)
	assert.Equal(t, "birthday-"+created.ID, march.Occurrences[0].ID)
	assert.Equal(t, "Jane Doe's Birthday", march.Occurrences[0].Title)
	assert.Equal(t, 41, march.Occurrences[0].Years)
	// March 2026 starts on a Sunday
	require.NotNil(t, march.Cells[0])
	assert.Equal(t, 1, *march.Cells[0])

	// the cached projection must follow edits
	created.DateOfBirth = "1985-04-02"
	decode[lead](t, s.do("b1", http.MethodPut, "/api/leads/"+created.ID, created), http.StatusOK)
	march = decode[month](t, s.do("b1", http.MethodGet, "/api/calendar/month?year=2026&month=3", nil), http.StatusOK)
	assert.Empty(t, march.Occurrences)
	april := decode[month](t, s.do("b1", http.MethodGet, "/api/calendar/month?year=2026&month=4", nil), http.StatusOK)
	assert.Len(t, april.Occurrences, 1)

	// other tenants see nothing of it
	other := decode[month](t, s.do("b2", http.MethodGet, "/api/calendar/month?year=2026&month=4", nil), http.StatusOK)
	assert.Empty(t, other.Occurrences)
	assert.Equal(t, http.StatusNotFound, s.do("b2", http.MethodDelete, "/api/leads/"+created.ID, nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do("b1", http.MethodDelete, "/api/leads/"+created.ID, nil).Code)
	april = decode[month](t, s.do("b1", http.MethodGet, "/api/calendar/month?year=2026&month=4", nil), http.StatusOK)
	assert.Empty(t, april.Occurrences)

	assert.Equal(t, http.StatusBadRequest, s.do("b1", http.MethodGet, "/api/calendar/month?year=2026&month=13", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("b1", http.MethodPost, "/api/leads", map[string]string{"name": ""}).Code)
}

func TestTasksAndDayView(t *testing.T) {
	s := newServer(t)
	s.brokerage("b1")

	type task struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		DueDate   string `json:"dueDate"`
		Completed bool   `json:"completed"`
	}
	created := decode[task](t, s.do("b1", http.MethodPost, "/api/tasks", map[string]string{
		"title":   "Call lender",
		"dueDate": "2026-01-15T10:00",
		"endDate": "2026-01-15T11:00",
	}), http.StatusCreated)

	type box struct {
		ID     string  `json:"id"`
		Top    float64 `json:"top"`
		Height float64 `json:"height"`
	}
	type day struct {
		Timed      []box    `json:"timed"`
		GridHeight float64  `json:"gridHeight"`
		NowOffset  *float64 `json:"nowOffset"`
	}
	view := decode[day](t, s.do("b1", http.MethodGet, "/api/calendar/day?date=2026-01-15&zoom=1", nil), http.StatusOK)
	require.Len(t, view.Timed, 1)
	assert.Equal(t, "task-"+created.ID, view.Timed[0].ID)
	assert.InDelta(t, 400, view.Timed[0].Top, 1e-9)
	assert.InDelta(t, 100, view.Timed[0].Height, 1e-9)
	assert.InDelta(t, 1600, view.GridHeight, 1e-9)
	assert.Nil(t, view.NowOffset)

	// zoom is clamped
	view = decode[day](t, s.do("b1", http.MethodGet, "/api/calendar/day?date=2026-01-15&zoom=9", nil), http.StatusOK)
	assert.InDelta(t, 800, view.Timed[0].Top, 1e-9)

	done := decode[task](t, s.do("b1", http.MethodPost, "/api/tasks/"+created.ID+"/complete", nil), http.StatusOK)
	assert.True(t, done.Completed)

	open := decode[[]task](t, s.do("b1", http.MethodGet, "/api/tasks?completed=false", nil), http.StatusOK)
	assert.Empty(t, open)

	assert.Equal(t, http.StatusBadRequest, s.do("b1", http.MethodPost, "/api/tasks", map[string]string{"title": "x", "dueDate": "blorp"}).Code)
	assert.Equal(t, http.StatusNoContent, s.do("b1", http.MethodDelete, "/api/tasks/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do("b1", http.MethodPost, "/api/tasks/"+created.ID+"/complete", nil).Code)
}

type deal struct {
	ID              string `json:"id"`
	StageID         string `json:"stageId"`
	Position        int    `json:"position"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	PriceCents      int64  `json:"priceCents"`
	CommissionCents int64  `json:"commissionCents"`
	ExpectedClose   string `json:"expectedClose"`
}

type column struct {
	StageID string `json:"stageId"`
	Name    string `json:"name"`
	Deals   []deal `json:"deals"`
}

func TestDealsAndPipeline(t *testing.T) {
	s := newServer(t)
	stages := s.brokerage("b1")

	first := decode[deal](t, s.do("b1", http.MethodPost, "/api/deals", map[string]any{"title": "12 Elm St", "priceCents": 500_000_00, "expectedClose": "2026-03-15"}), http.StatusCreated)
	second := decode[deal](t, s.do("b1", http.MethodPost, "/api/deals", map[string]any{"title": "9 Oak Ave", "priceCents": 700_000_00}), http.StatusCreated)
	assert.Equal(t, stages[0].ID, first.StageID)
	assert.Equal(t, "active", first.Status)
	assert.Equal(t, 1, second.Position)

	board := decode[[]column](t, s.do("b1", http.MethodPost, "/api/pipeline/move", map[string]any{"dealId": second.ID, "toStage": stages[2].ID, "toIndex": 99}), http.StatusOK)
	require.Len(t, board, len(stages))
	require.Len(t, board[2].Deals, 1)
	assert.Equal(t, second.ID, board[2].Deals[0].ID)
	require.Len(t, board[0].Deals, 1)
	assert.Equal(t, 0, board[0].Deals[0].Position)

	board = decode[[]column](t, s.do("b1", http.MethodPost, "/api/pipeline/stages/reorder", map[string]int{"from": 2, "to": 0}), http.StatusOK)
	assert.Equal(t, stages[2].ID, board[0].StageID)

	// persisted, not just echoed
	board = decode[[]column](t, s.do("b1", http.MethodGet, "/api/pipeline", nil), http.StatusOK)
	assert.Equal(t, stages[2].ID, board[0].StageID)
	assert.Equal(t, second.ID, board[0].Deals[0].ID)

	assert.Equal(t, http.StatusNotFound, s.do("b1", http.MethodPost, "/api/pipeline/move", map[string]any{"dealId": "nope", "toStage": stages[0].ID}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("b1", http.MethodPost, "/api/pipeline/stages/reorder", map[string]int{"from": 0, "to": 42}).Code)

	type group struct {
		Key   string     `json:"key"`
		Label string     `json:"label"`
		Start *time.Time `json:"start"`
		Deals []deal     `json:"deals"`
	}
	groups := decode[[]group](t, s.do("b1", http.MethodGet, "/api/pipeline/months", nil), http.StatusOK)
	require.Len(t, groups, 2)
	assert.Equal(t, "2026-03", groups[0].Key)
	assert.Equal(t, "March 2026", groups[0].Label)
	require.NotNil(t, groups[0].Start)
	assert.True(t, groups[0].Start.Equal(time.Date(2026, time.March, 1, 0, 0, 0, 0, calendar.Location())))
	assert.Equal(t, "unscheduled", groups[1].Key)
	assert.Equal(t, "Unscheduled", groups[1].Label)
	assert.Nil(t, groups[1].Start)

	// status transitions
	closed := decode[deal](t, s.do("b1", http.MethodPost, "/api/deals/"+first.ID+"/status", map[string]string{"status": "closed"}), http.StatusOK)
	assert.Equal(t, "closed", closed.Status)
	assert.Equal(t, http.StatusConflict, s.do("b1", http.MethodPost, "/api/deals/"+first.ID+"/status", map[string]string{"status": "active"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("b1", http.MethodPost, "/api/deals/"+first.ID+"/status", map[string]string{"status": "lost"}).Code)

	type totals struct {
		Count       int   `json:"count"`
		VolumeCents int64 `json:"volumeCents"`
	}
	type summary struct {
		ByStatus   map[string]totals `json:"byStatus"`
		TotalDeals int               `json:"totalDeals"`
	}
	sum := decode[summary](t, s.do("b1", http.MethodGet, "/api/reports/summary", nil), http.StatusOK)
	assert.Equal(t, 2, sum.TotalDeals)
	assert.Equal(t, int64(500_000_00), sum.ByStatus["closed"].VolumeCents)
	assert.Equal(t, 1, sum.ByStatus["active"].Count)
}

func TestOpenHouseCheckIns(t *testing.T) {
	s := newServer(t)
	s.brokerage("b1")

	type openHouse struct {
		ID string `json:"id"`
	}
	oh := decode[openHouse](t, s.do("b1", http.MethodPost, "/api/open-houses", map[string]string{
		"address":  "12 Elm St",
		"startsAt": "2026-02-01T13:00",
		"endsAt":   "2026-02-01T16:00",
	}), http.StatusCreated)

	type checkIn struct {
		LeadID  string `json:"leadId"`
		NewLead bool   `json:"newLead"`
	}
	path := "/api/open-houses/" + oh.ID + "/check-ins"
	first := decode[checkIn](t, s.do("b1", http.MethodPost, path, map[string]string{"name": "sam lee", "email": "Sam@Example.com"}), http.StatusCreated)
	assert.True(t, first.NewLead)
	again := decode[checkIn](t, s.do("b1", http.MethodPost, path, map[string]string{"name": "Sam Lee", "email": "sam@example.com"}), http.StatusCreated)
	assert.False(t, again.NewLead)
	assert.Equal(t, first.LeadID, again.LeadID)

	all := decode[[]checkIn](t, s.do("b1", http.MethodGet, path, nil), http.StatusOK)
	assert.Len(t, all, 2)

	type sourceCount struct {
		Source string `json:"source"`
		Count  int    `json:"count"`
	}
	sources := decode[[]sourceCount](t, s.do("b1", http.MethodGet, "/api/reports/lead-sources", nil), http.StatusOK)
	assert.Equal(t, []sourceCount{{Source: route.OpenHouseLeadSource, Count: 1}}, sources)

	assert.Equal(t, http.StatusNoContent, s.do("b1", http.MethodDelete, "/api/open-houses/"+oh.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do("b1", http.MethodGet, path, nil).Code)
}

func TestIcalFeed(t *testing.T) {
	s := newServer(t)
	s.brokerage("b1")
	s.do("b1", http.MethodPost, "/api/leads", map[string]string{"name": "Jane", "homeAnniversary": "2020-06-01"})

	rec := s.do("", http.MethodGet, "/ical/b1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "SUMMARY:Home Anniversary")
	assert.Contains(t, body, "RRULE:FREQ=YEARLY")

	assert.Equal(t, http.StatusNotFound, s.do("", http.MethodGet, "/ical/nope", nil).Code)
	assert.Equal(t, http.StatusOK, s.do("", http.MethodGet, "/ping", nil).Code)
}
