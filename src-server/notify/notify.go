package notify

import (
	"context"
	"log/slog"
	"time"
)

// A task coming due, as announced to the team.
type Reminder struct {
	TaskID      string
	BrokerageID string
	Title       string
	Due         time.Time
}

// Notify delivers reminders in order and reports how many went out. On error
// reminders[:delivered] were still delivered.
type Notifier interface {
	Notify(ctx context.Context, reminders []Reminder) (delivered int, err error)
}

// Logs reminders instead of sending them anywhere.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, reminders []Reminder) (int, error) {
	for _, r := range reminders {
		slog.Info("task due soon", "task", r.TaskID, "brokerage", r.BrokerageID, "title", r.Title, "due", r.Due)
	}
	return len(reminders), nil
}
