package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brokerdesk/src-server/calendar"
	"brokerdesk/src-server/pipeline"

	"github.com/uptrace/bun"
)

// A transaction moving through the pipeline stages of its brokerage.
type Deal struct {
	bun.BaseModel `bun:"table:deals"`

	ID          string          `bun:"id,pk"`                // required
	BrokerageID string          `bun:"brokerage_id,notnull"` // required
	StageID     string          `bun:"stage_id,notnull"`     // required
	LeadID      string          `bun:"lead_id"`
	Position    int             `bun:"position,notnull,default:0"`
	Title       string          `bun:"title,notnull"` // required
	Address     string          `bun:"address"`
	Status      pipeline.Status `bun:"status,notnull,type:varchar"` // required
	Source      string          `bun:"source"`

	PriceCents      int64 `bun:"price_cents"`
	CommissionCents int64 `bun:"commission_cents"`

	ExpectedClose string `bun:"expected_close"`
	ClosedAt      int64  `bun:"closed_at"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`
}

func (d *Deal) Upsert(ctx context.Context, db bun.IDB) error {
	if d.Status == "" {
		d.Status = pipeline.StatusActive
	}
	switch {
	case d.ID == "":
		return fmt.Errorf("(*Deal).Upsert: id is blank")
	case d.BrokerageID == "":
		return fmt.Errorf("(*Deal).Upsert: brokerage id is blank")
	case d.StageID == "":
		return fmt.Errorf("(*Deal).Upsert: stage id is blank")
	case strings.TrimSpace(d.Title) == "":
		return fmt.Errorf("(*Deal).Upsert: title is blank")
	case !d.Status.Valid():
		return fmt.Errorf("(*Deal).Upsert: unknown status %q", d.Status)
	case d.PriceCents < 0 || d.CommissionCents < 0:
		return fmt.Errorf("(*Deal).Upsert: amounts must not be negative")
	}
	if d.ExpectedClose != "" {
		if _, err := calendar.ParseCivil(d.ExpectedClose); err != nil {
			return fmt.Errorf("(*Deal).Upsert: %w", err)
		}
	}
	if d.Status == pipeline.StatusClosed && d.ClosedAt == 0 {
		d.ClosedAt = time.Now().UTC().Unix()
	}

	stageExists, err := db.NewSelect().
		Model((*PipelineStage)(nil)).
		Where("id = ?", d.StageID).
		Where("brokerage_id = ?", d.BrokerageID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("(*Deal).Upsert: %w", err)
	}
	if !stageExists {
		return fmt.Errorf("(*Deal).Upsert: stage %s not found", d.StageID)
	}

	exists, err := db.NewSelect().
		Model((*Deal)(nil)).
		Where("id = ?", d.ID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("(*Deal).Upsert: %w", err)
	}

	switch exists {
	case true:
		d.UpdatedAt = time.Now().UTC().Unix()
		if _, err := db.NewUpdate().
			Model(d).
			ExcludeColumn("created_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Deal).Upsert: %w", err)
		}
	case false:
		if d.CreatedAt == 0 {
			d.CreatedAt = time.Now().UTC().Unix()
		}
		if _, err := db.NewInsert().
			Model(d).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Deal).Upsert: %w", err)
		}
	}
	return nil
}

func (d *Deal) ToPipeline() pipeline.Deal {
	deal := pipeline.Deal{
		ID:              d.ID,
		Title:           d.Title,
		StageID:         d.StageID,
		Position:        d.Position,
		Status:          d.Status,
		Source:          d.Source,
		PriceCents:      d.PriceCents,
		CommissionCents: d.CommissionCents,
	}
	if d.ExpectedClose != "" {
		deal.ExpectedClose, _ = calendar.ParseCivil(d.ExpectedClose)
	}
	if d.ClosedAt != 0 {
		deal.ClosedAt = time.Unix(d.ClosedAt, 0).UTC()
	}
	return deal
}

func ListDeals(ctx context.Context, db bun.IDB, brokerageID string) ([]Deal, error) {
	deals := make([]Deal, 0)
	if err := db.NewSelect().
		Model(&deals).
		Where("brokerage_id = ?", brokerageID).
		Order("position ASC", "id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("ListDeals: %w", err)
	}
	return deals, nil
}

// SavePlacements writes stage and position of every deal on the board.
func SavePlacements(ctx context.Context, db bun.IDB, brokerageID string, slots map[string]pipeline.Slot) error {
	now := time.Now().UTC().Unix()
	for dealID, slot := range slots {
		if _, err := db.NewUpdate().
			Model((*Deal)(nil)).
			Set("stage_id = ?", slot.StageID).
			Set("position = ?", slot.Position).
			Set("updated_at = ?", now).
			Where("id = ?", dealID).
			Where("brokerage_id = ?", brokerageID).
			Exec(ctx); err != nil {
			return fmt.Errorf("SavePlacements: %w", err)
		}
	}
	return nil
}
