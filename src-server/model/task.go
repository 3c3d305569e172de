package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brokerdesk/src-server/calendar"

	"github.com/uptrace/bun"
)

type Task struct {
	bun.BaseModel `bun:"table:tasks"`

	ID          string `bun:"id,pk"`                // required
	BrokerageID string `bun:"brokerage_id,notnull"` // required
	LeadID      string `bun:"lead_id"`
	DealID      string `bun:"deal_id"`
	Title       string `bun:"title,notnull"` // required
	Notes       string `bun:"notes"`

	// stored as entered; DueUnixUTC is derived from DueDate on write
	DueDate    string `bun:"due_date,notnull"` // required
	EndDate    string `bun:"end_date"`
	DueUnixUTC int64  `bun:"due_unix_utc"`

	Completed    bool  `bun:"completed"`
	CompletedAt  int64 `bun:"completed_at"`
	ReminderSent bool  `bun:"reminder_sent"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`
}

func (t *Task) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case t.ID == "":
		return fmt.Errorf("(*Task).Upsert: id is blank")
	case t.BrokerageID == "":
		return fmt.Errorf("(*Task).Upsert: brokerage id is blank")
	case strings.TrimSpace(t.Title) == "":
		return fmt.Errorf("(*Task).Upsert: title is blank")
	case strings.TrimSpace(t.DueDate) == "":
		return fmt.Errorf("(*Task).Upsert: due date is blank")
	}

	// unparseable dates are kept, they just never trigger a reminder
	t.DueUnixUTC = 0
	if due, err := calendar.ParseCivil(t.DueDate); err == nil {
		t.DueUnixUTC = due.UTC().Unix()
	}
	if t.Completed && t.CompletedAt == 0 {
		t.CompletedAt = time.Now().UTC().Unix()
	}

	// the row and the revision move together
	if err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*Task)(nil)).
			Where("id = ?", t.ID).
			Exists(ctx)
		if err != nil {
			return err
		}

		switch exists {
		case true:
			t.UpdatedAt = time.Now().UTC().Unix()
			if _, err := tx.NewUpdate().
				Model(t).
				ExcludeColumn("created_at").
				WherePK().
				Exec(ctx); err != nil {
				return err
			}
		case false:
			if t.CreatedAt == 0 {
				t.CreatedAt = time.Now().UTC().Unix()
			}
			if _, err := tx.NewInsert().
				Model(t).
				Exec(ctx); err != nil {
				return err
			}
		}

		if _, err := BumpRevision(ctx, tx, t.BrokerageID); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return fmt.Errorf("(*Task).Upsert: %w", err)
	}
	return nil
}

// Open tasks due in (now, now+within] that have not been reminded yet.
func DueForReminder(ctx context.Context, db bun.IDB, now time.Time, within time.Duration) ([]Task, error) {
	tasks := make([]Task, 0)
	if err := db.NewSelect().
		Model(&tasks).
		Where("completed = ?", false).
		Where("reminder_sent = ?", false).
		Where("due_unix_utc > ?", now.UTC().Unix()).
		Where("due_unix_utc <= ?", now.UTC().Add(within).Unix()).
		Order("due_unix_utc ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("DueForReminder: %w", err)
	}
	return tasks, nil
}

func MarkReminded(ctx context.Context, db bun.IDB, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	if _, err := db.NewUpdate().
		Model((*Task)(nil)).
		Set("reminder_sent = ?", true).
		Where("id IN (?)", bun.In(taskIDs)).
		Exec(ctx); err != nil {
		return fmt.Errorf("MarkReminded: %w", err)
	}
	return nil
}

func (t *Task) ToCalendar() calendar.Task {
	return calendar.Task{
		ID:      t.ID,
		Title:   t.Title,
		DueDate: t.DueDate,
		EndDate: t.EndDate,
	}
}

// LoadCalendarSources reads the leads and tasks a brokerage's calendar is
// projected from.
func LoadCalendarSources(ctx context.Context, db bun.IDB, brokerageID string) ([]calendar.Lead, []calendar.Task, error) {
	leadModels := make([]Lead, 0)
	if err := db.NewSelect().
		Model(&leadModels).
		Where("brokerage_id = ?", brokerageID).
		Scan(ctx); err != nil {
		return nil, nil, fmt.Errorf("LoadCalendarSources: can't get leads: %w", err)
	}
	taskModels := make([]Task, 0)
	if err := db.NewSelect().
		Model(&taskModels).
		Where("brokerage_id = ?", brokerageID).
		Scan(ctx); err != nil {
		return nil, nil, fmt.Errorf("LoadCalendarSources: can't get tasks: %w", err)
	}

	leads := make([]calendar.Lead, len(leadModels))
	for i := range leadModels {
		leads[i] = leadModels[i].ToCalendar()
	}
	tasks := make([]calendar.Task, len(taskModels))
	for i := range taskModels {
		tasks[i] = taskModels[i].ToCalendar()
	}
	return leads, tasks, nil
}
