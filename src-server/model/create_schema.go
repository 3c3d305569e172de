package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
)

func CreateSchema(ctx context.Context, db *bun.DB) error {
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []interface{}{
			(*Brokerage)(nil),
			(*Lead)(nil),
			(*Task)(nil),
			(*PipelineStage)(nil),
			(*Deal)(nil),
			(*OpenHouse)(nil),
			(*CheckIn)(nil),
		} {
			if _, err := tx.
				NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
		}

		for _, index := range []struct {
			name    string
			model   interface{}
			columns []string
		}{
			{"leads_brokerage_email_idx", (*Lead)(nil), []string{"brokerage_id", "email"}},
			{"tasks_due_idx", (*Task)(nil), []string{"due_unix_utc"}},
			{"deals_brokerage_stage_idx", (*Deal)(nil), []string{"brokerage_id", "stage_id"}},
		} {
			if _, err := tx.
				NewCreateIndex().
				Model(index.model).
				Index(index.name).
				Column(index.columns...).
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("CreateSchema: %w", err)
	}

	return nil
}
