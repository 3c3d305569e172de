package model_test

import (
	"context"
	"testing"
	"time"

	"brokerdesk/src-server/model"
	"brokerdesk/src-server/model/modeltest"
	"brokerdesk/src-server/pipeline"

	"github.com/google/uuid"
)

func TestLeadUpsertBumpsRevision(t *testing.T) {
	ctx := context.Background()
	db := modeltest.NewDB(t)
	modeltest.Brokerage(t, db, "b1")

	lead := model.Lead{
		ID:          uuid.NewString(),
		BrokerageID: "b1",
		Name:        "Jane Doe",
		Email:       " Jane@Example.com ",
		DateOfBirth: "1985-03-10",
	}
	if err := lead.Upsert(ctx, db); err != nil {
		t.Fatal(err)
	}
	if lead.Email != "jane@example.com" {
		t.Error("email should be normalised", lead.Email)
	}

	lead.Phone = "555-0100"
	if err := lead.Upsert(ctx, db); err != nil {
		t.Fatal(err)
	}

	brokerage := new(model.Brokerage)
	if err := db.NewSelect().Model(brokerage).Where("id = ?", "b1").Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if brokerage.Revision != 2 {
		t.Error("revision should be bumped once per write", brokerage.Revision)
	}

	found, err := model.FindLeadByEmail(ctx, db, "b1", "JANE@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.Phone != "555-0100" {
		t.Error("lead not found by email", found)
	}

	missing, err := model.FindLeadByEmail(ctx, db, "b1", "nobody@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("unexpected lead", missing)
	}
}

func TestLeadUpsertValidation(t *testing.T) {
	ctx := context.Background()
	db := modeltest.NewDB(t)
	modeltest.Brokerage(t, db, "b1")

	for _, lead := range []model.Lead{
		{BrokerageID: "b1", Name: "no id"},
		{ID: "x", Name: "no brokerage"},
		{ID: "x", BrokerageID: "b1", Name: "  "},
		{ID: "x", BrokerageID: "b1", Name: "Bad Email", Email: "not-an-email"},
	} {
		if err := lead.Upsert(ctx, db); err == nil {
			t.Error("expected validation error", lead)
		}
	}

	// milestone dates are stored as given
	lead := model.Lead{ID: "x", BrokerageID: "b1", Name: "Legacy", DateOfBirth: "03/10/1985"}
	if err := lead.Upsert(ctx, db); err != nil {
		t.Error(err)
	}
}

func TestUpsertRollsBackWithoutRevisionBump(t *testing.T) {
	ctx := context.Background()
	db := modeltest.NewDB(t)

	// no such brokerage, so the revision bump fails after the row write
	lead := model.Lead{ID: "orphan-lead", BrokerageID: "ghost", Name: "Nobody"}
	if err := lead.Upsert(ctx, db); err == nil {
		t.Fatal("expected an error when the revision can't be bumped")
	}
	task := model.Task{ID: "orphan-task", BrokerageID: "ghost", Title: "x", DueDate: "2026-01-15"}
	if err := task.Upsert(ctx, db); err == nil {
		t.Fatal("expected an error when the revision can't be bumped")
	}

	for _, m := range []interface{}{(*model.Lead)(nil), (*model.Task)(nil)} {
		count, err := db.NewSelect().Model(m).Count(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Errorf("%T write must be rolled back, got %d rows", m, count)
		}
	}
}

func TestTaskReminderQueries(t *testing.T) {
	ctx := context.Background()
	db := modeltest.NewDB(t)
	modeltest.Brokerage(t, db, "b1")

	now := time.Date(2026, time.January, 15, 18, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "soon", Title: "soon", DueDate: now.Add(10 * time.Minute).Format(time.RFC3339)},
		{ID: "later", Title: "later", DueDate: now.Add(2 * time.Hour).Format(time.RFC3339)},
		{ID: "past", Title: "past", DueDate: now.Add(-time.Minute).Format(time.RFC3339)},
		{ID: "done", Title: "done", DueDate: now.Add(5 * time.Minute).Format(time.RFC3339), Completed: true},
		{ID: "garbage", Title: "garbage", DueDate: "whenever"},
	}
	for i := range tasks {
		tasks[i].BrokerageID = "b1"
		if err := tasks[i].Upsert(ctx, db); err != nil {
			t.Fatal(err)
		}
	}

	due, err := model.DueForReminder(ctx, db, now, 15*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != "soon" {
		t.Fatal("only the open task due within the window is expected", due)
	}

	if err := model.MarkReminded(ctx, db, []string{"soon"}); err != nil {
		t.Fatal(err)
	}
	due, err = model.DueForReminder(ctx, db, now, 15*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Error("reminded tasks must not come back", due)
	}

	leads, calTasks, err := model.LoadCalendarSources(ctx, db, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(leads) != 0 || len(calTasks) != len(tasks) {
		t.Error("unexpected calendar sources", len(leads), len(calTasks))
	}
}

func TestDealUpsert(t *testing.T) {
	ctx := context.Background()
	db := modeltest.NewDB(t)
	modeltest.Brokerage(t, db, "b1")
	modeltest.Stage(t, db, "b1", "new", 0)

	deal := model.Deal{ID: "d1", BrokerageID: "b1", StageID: "new", Title: "12 Elm St", PriceCents: 950_000_00, ExpectedClose: "2026-04-30"}
	if err := deal.Upsert(ctx, db); err != nil {
		t.Fatal(err)
	}
	if deal.Status != pipeline.StatusActive {
		t.Error("deals start active", deal.Status)
	}

	deal.Status = pipeline.StatusClosed
	if err := deal.Upsert(ctx, db); err != nil {
		t.Fatal(err)
	}
	if deal.ClosedAt == 0 {
		t.Error("closing a deal stamps closed_at")
	}

	converted := deal.ToPipeline()
	if converted.ExpectedClose.Day() != 30 || converted.ClosedAt.IsZero() {
		t.Error("conversion lost dates", converted)
	}

	orphan := model.Deal{ID: "d2", BrokerageID: "b1", StageID: "missing", Title: "x"}
	if err := orphan.Upsert(ctx, db); err == nil {
		t.Error("deal on an unknown stage must be rejected")
	}
	bad := model.Deal{ID: "d3", BrokerageID: "b1", StageID: "new", Title: "x", Status: "lost"}
	if err := bad.Upsert(ctx, db); err == nil {
		t.Error("unknown status must be rejected")
	}
}

func TestPlacementsAndStageOrder(t *testing.T) {
	ctx := context.Background()
	db := modeltest.NewDB(t)
	modeltest.Brokerage(t, db, "b1")
	modeltest.Stage(t, db, "b1", "new", 0)
	modeltest.Stage(t, db, "b1", "offer", 1)

	for _, id := range []string{"d1", "d2"} {
		deal := model.Deal{ID: id, BrokerageID: "b1", StageID: "new", Title: id}
		if err := deal.Upsert(ctx, db); err != nil {
			t.Fatal(err)
		}
	}

	if err := model.SavePlacements(ctx, db, "b1", map[string]pipeline.Slot{
		"d1": {StageID: "offer", Position: 0},
		"d2": {StageID: "new", Position: 0},
	}); err != nil {
		t.Fatal(err)
	}
	if err := model.SaveStageOrder(ctx, db, "b1", map[string]int{"offer": 0, "new": 1}); err != nil {
		t.Fatal(err)
	}

	stages, err := model.ListStages(ctx, db, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if stages[0].ID != "offer" {
		t.Error("stage order not saved", stages)
	}

	deals, err := model.ListDeals(ctx, db, "b1")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range deals {
		if d.ID == "d1" && d.StageID != "offer" {
			t.Error("deal placement not saved", d)
		}
	}
}

func TestBrokerageDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := modeltest.NewDB(t)
	modeltest.Brokerage(t, db, "b1")
	modeltest.Brokerage(t, db, "b2")

	for _, id := range []string{"b1", "b2"} {
		lead := model.Lead{ID: "lead-" + id, BrokerageID: id, Name: "Lead"}
		if err := lead.Upsert(ctx, db); err != nil {
			t.Fatal(err)
		}
		openHouse := model.OpenHouse{ID: "oh-" + id, BrokerageID: id, Address: "1 Main St", StartsAt: "2026-02-01T13:00"}
		if err := openHouse.Upsert(ctx, db); err != nil {
			t.Fatal(err)
		}
		checkIn := model.CheckIn{ID: "ci-" + id, OpenHouseID: openHouse.ID, BrokerageID: id, LeadID: lead.ID, Name: "Visitor"}
		if err := checkIn.Insert(ctx, db); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := db.NewDelete().
		Model((*model.Brokerage)(nil)).
		Where("id = ?", "b1").
		Exec(context.WithValue(ctx, model.BrokerageIDCtxKey, "b1")); err != nil {
		t.Fatal(err)
	}

	for _, m := range []interface{}{(*model.Lead)(nil), (*model.OpenHouse)(nil), (*model.CheckIn)(nil)} {
		count, err := db.NewSelect().Model(m).Where("brokerage_id = ?", "b1").Count(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Errorf("%T rows should be gone, got %d", m, count)
		}
		count, err = db.NewSelect().Model(m).Where("brokerage_id = ?", "b2").Count(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("%T rows of another brokerage must stay, got %d", m, count)
		}
	}
}

func TestOpenHouseDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := modeltest.NewDB(t)
	modeltest.Brokerage(t, db, "b1")

	openHouse := model.OpenHouse{ID: "oh", BrokerageID: "b1", Address: "1 Main St", StartsAt: "2026-02-01T13:00", EndsAt: "2026-02-01T16:00"}
	if err := openHouse.Upsert(ctx, db); err != nil {
		t.Fatal(err)
	}
	checkIn := model.CheckIn{ID: "ci", OpenHouseID: "oh", BrokerageID: "b1", LeadID: "l", Name: "Visitor"}
	if err := checkIn.Insert(ctx, db); err != nil {
		t.Fatal(err)
	}

	if _, err := db.NewDelete().
		Model((*model.OpenHouse)(nil)).
		Where("id = ?", "oh").
		Exec(context.WithValue(ctx, model.OpenHouseIDCtxKey, "oh")); err != nil {
		t.Fatal(err)
	}
	count, err := db.NewSelect().Model((*model.CheckIn)(nil)).Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("check-ins should be deleted with their open house", count)
	}

	backwards := model.OpenHouse{ID: "oh2", BrokerageID: "b1", Address: "x", StartsAt: "2026-02-01T13:00", EndsAt: "2026-02-01T12:00"}
	if err := backwards.Upsert(ctx, db); err == nil {
		t.Error("an open house ending before it starts must be rejected")
	}
}
