package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type BrokerageIDCtxKeyType string

const BrokerageIDCtxKey BrokerageIDCtxKeyType = "brokerage-id"

// A brokerage is one tenant. Every other row hangs off a brokerage id.
type Brokerage struct {
	bun.BaseModel `bun:"table:brokerages"`

	ID        string `bun:"id,pk"`        // required
	Name      string `bun:"name,notnull"` // required
	CreatedAt int64  `bun:"created_at,notnull"`

	// bumped on every lead/task write, keys the calendar cache
	Revision int64 `bun:"revision,notnull,default:0"`
}

var _ bun.AfterDeleteHook = (*Brokerage)(nil)

// Removes every row owned by the deleted brokerage. The id travels in the
// context under BrokerageIDCtxKey.
func (b *Brokerage) AfterDelete(ctx context.Context, query *bun.DeleteQuery) error {
	if query.DB() == nil {
		return fmt.Errorf("(*Brokerage).AfterDelete: db is nil")
	}

	brokerageID, ok := ctx.Value(BrokerageIDCtxKey).(string)
	switch {
	case !ok:
		return fmt.Errorf("(*Brokerage).AfterDelete: brokerage id is missing from context")
	case brokerageID == "":
		return fmt.Errorf("(*Brokerage).AfterDelete: brokerage id is blank")
	}

	for _, m := range []interface{}{
		(*Lead)(nil),
		(*Task)(nil),
		(*Deal)(nil),
		(*PipelineStage)(nil),
		(*CheckIn)(nil),
		(*OpenHouse)(nil),
	} {
		if _, err := query.DB().NewDelete().
			Model(m).
			Where("brokerage_id = ?", brokerageID).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Brokerage).AfterDelete: %w", err)
		}
	}
	return nil
}

func (b *Brokerage) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case b.ID == "":
		return fmt.Errorf("(*Brokerage).Upsert: id is blank")
	case b.Name == "":
		return fmt.Errorf("(*Brokerage).Upsert: name is blank")
	}
	if b.CreatedAt == 0 {
		b.CreatedAt = time.Now().UTC().Unix()
	}

	if _, err := db.NewInsert().
		Model(b).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Brokerage).Upsert: %w", err)
	}
	return nil
}

// BumpRevision marks the brokerage's leads/tasks as changed and returns the
// new revision.
func BumpRevision(ctx context.Context, db bun.IDB, brokerageID string) (int64, error) {
	if _, err := db.NewUpdate().
		Model((*Brokerage)(nil)).
		Set("revision = revision + 1").
		Where("id = ?", brokerageID).
		Exec(ctx); err != nil {
		return 0, fmt.Errorf("BumpRevision: %w", err)
	}

	var revision int64
	if err := db.NewSelect().
		Model((*Brokerage)(nil)).
		Column("revision").
		Where("id = ?", brokerageID).
		Scan(ctx, &revision); err != nil {
		return 0, fmt.Errorf("BumpRevision: %w", err)
	}
	return revision, nil
}
