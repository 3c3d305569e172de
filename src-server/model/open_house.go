package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brokerdesk/src-server/calendar"

	"github.com/uptrace/bun"
)

type OpenHouseIDCtxKeyType string

const OpenHouseIDCtxKey OpenHouseIDCtxKeyType = "open-house-id"

type OpenHouse struct {
	bun.BaseModel `bun:"table:open_houses"`

	ID          string `bun:"id,pk"`                // required
	BrokerageID string `bun:"brokerage_id,notnull"` // required
	DealID      string `bun:"deal_id"`
	Address     string `bun:"address,notnull"`   // required
	StartsAt    string `bun:"starts_at,notnull"` // required
	EndsAt      string `bun:"ends_at"`

	CreatedAt int64 `bun:"created_at,notnull"`

	CheckIns []*CheckIn `bun:"rel:has-many,join:id=open_house_id"`
}

var _ bun.AfterDeleteHook = (*OpenHouse)(nil)

func (o *OpenHouse) AfterDelete(ctx context.Context, query *bun.DeleteQuery) error {
	if query.DB() == nil {
		return fmt.Errorf("(*OpenHouse).AfterDelete: db is nil")
	}

	switch openHouseID := ctx.Value(OpenHouseIDCtxKey).(type) {
	case string:
		if openHouseID == "" {
			return fmt.Errorf("(*OpenHouse).AfterDelete: open house id is blank")
		}
		if _, err := query.DB().NewDelete().
			Model((*CheckIn)(nil)).
			Where("open_house_id = ?", openHouseID).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*OpenHouse).AfterDelete: can't delete check-ins: %w", err)
		}
	case nil:
		// bulk deletes (whole brokerage) clean check-ins themselves
		return nil
	default:
		return fmt.Errorf("(*OpenHouse).AfterDelete: wrong open house id type | type=%T", openHouseID)
	}
	return nil
}

func (o *OpenHouse) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case o.ID == "":
		return fmt.Errorf("(*OpenHouse).Upsert: id is blank")
	case o.BrokerageID == "":
		return fmt.Errorf("(*OpenHouse).Upsert: brokerage id is blank")
	case strings.TrimSpace(o.Address) == "":
		return fmt.Errorf("(*OpenHouse).Upsert: address is blank")
	}
	start, err := calendar.ParseCivil(o.StartsAt)
	if err != nil || start.IsZero() {
		return fmt.Errorf("(*OpenHouse).Upsert: start is invalid: %q", o.StartsAt)
	}
	if o.EndsAt != "" {
		end, err := calendar.ParseCivil(o.EndsAt)
		if err != nil {
			return fmt.Errorf("(*OpenHouse).Upsert: %w", err)
		}
		if end.Before(start) {
			return fmt.Errorf("(*OpenHouse).Upsert: end must be after start")
		}
	}
	if o.CreatedAt == 0 {
		o.CreatedAt = time.Now().UTC().Unix()
	}

	if _, err := db.NewInsert().
		Model(o).
		On("CONFLICT (id) DO UPDATE").
		Set("deal_id = EXCLUDED.deal_id").
		Set("address = EXCLUDED.address").
		Set("starts_at = EXCLUDED.starts_at").
		Set("ends_at = EXCLUDED.ends_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*OpenHouse).Upsert: %w", err)
	}
	return nil
}

// A visitor signing in at an open house. Each check-in is linked to a lead,
// created on the spot when the visitor's email is new to the brokerage.
type CheckIn struct {
	bun.BaseModel `bun:"table:check_ins"`

	ID          string `bun:"id,pk"`                 // required
	OpenHouseID string `bun:"open_house_id,notnull"` // required
	BrokerageID string `bun:"brokerage_id,notnull"`  // required
	LeadID      string `bun:"lead_id,notnull"`       // required
	Name        string `bun:"name,notnull"`          // required
	Email       string `bun:"email"`
	Phone       string `bun:"phone"`
	Agent       string `bun:"agent"` // visitor's own agent, if any

	CreatedAt int64 `bun:"created_at,notnull"`
}

func (c *CheckIn) Insert(ctx context.Context, db bun.IDB) error {
	switch {
	case c.ID == "":
		return fmt.Errorf("(*CheckIn).Insert: id is blank")
	case c.OpenHouseID == "":
		return fmt.Errorf("(*CheckIn).Insert: open house id is blank")
	case c.LeadID == "":
		return fmt.Errorf("(*CheckIn).Insert: lead id is blank")
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("(*CheckIn).Insert: name is blank")
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UTC().Unix()
	}

	if _, err := db.NewInsert().
		Model(c).
		Exec(ctx); err != nil {
		return fmt.Errorf("(*CheckIn).Insert: %w", err)
	}
	return nil
}
