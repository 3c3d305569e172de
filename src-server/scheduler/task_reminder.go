package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"brokerdesk/src-server/model"
	"brokerdesk/src-server/notify"
	"brokerdesk/src-server/utils"

	"github.com/robfig/cron/v3"
)

// Every minute, on the minute.
const ReminderSpec = "* * * * *"

// RemindDueTasks sends one batch of reminders for tasks due within the lead
// time and marks the delivered ones, so each task is announced once. The
// count of delivered reminders is returned alongside any error.
func RemindDueTasks(ctx context.Context, as *utils.AppState, now time.Time) (int, error) {
	tasks, err := model.DueForReminder(ctx, as.BunDB, now, as.Config.GetReminderLeadTime())
	if err != nil {
		return 0, fmt.Errorf("RemindDueTasks: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	reminders := make([]notify.Reminder, len(tasks))
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		reminders[i] = notify.Reminder{
			TaskID:      task.ID,
			BrokerageID: task.BrokerageID,
			Title:       task.Title,
			Due:         time.Unix(task.DueUnixUTC, 0).UTC(),
		}
		ids[i] = task.ID
	}

	// whatever went out is marked even when a later batch failed
	delivered, notifyErr := as.Notifier.Notify(ctx, reminders)
	delivered = min(max(delivered, 0), len(ids))
	if err := model.MarkReminded(ctx, as.BunDB, ids[:delivered]); err != nil {
		return 0, fmt.Errorf("RemindDueTasks: %w", err)
	}
	if notifyErr != nil {
		return delivered, fmt.Errorf("RemindDueTasks: %w", notifyErr)
	}
	return delivered, nil
}

// TaskReminder runs RemindDueTasks on ReminderSpec until the app shuts down.
func TaskReminder(as *utils.AppState) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(ReminderSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cancel()

		sent, err := RemindDueTasks(ctx, as, time.Now())
		if err != nil {
			slog.Error("TaskReminder: can't send reminders", "delivered", sent, "error", err)
			return
		}
		if sent > 0 {
			slog.Info("task reminders sent", "count", sent)
		}
	}); err != nil {
		return nil, fmt.Errorf("TaskReminder: %w", err)
	}
	c.Start()

	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		<-*gracefulShutdownCh
		<-c.Stop().Done()
		slog.Debug("task reminder stopped")
	}()
	return c, nil
}
