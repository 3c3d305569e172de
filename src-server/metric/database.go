package metric

import (
	"context"
	"time"

	"brokerdesk/src-server/model"
	"brokerdesk/src-server/utils"
)

func database(as *utils.AppState) (time.Duration, error) {
	start := time.Now()
	if _, err := as.BunDB.NewSelect().
		Model((*model.Brokerage)(nil)).
		Where("id = ?", "").
		Exists(context.Background()); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
