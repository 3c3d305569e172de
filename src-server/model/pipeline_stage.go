package model

import (
	"context"
	"fmt"

	"brokerdesk/src-server/pipeline"

	"github.com/uptrace/bun"
)

// Each brokerage orders its deals through its own list of stages
type PipelineStage struct {
	bun.BaseModel `bun:"table:pipeline_stages"`

	ID          string `bun:"id,pk"`                // required
	BrokerageID string `bun:"brokerage_id,notnull"` // required
	Name        string `bun:"name,notnull"`         // required
	Position    int    `bun:"position,notnull,default:0"`
}

func (s *PipelineStage) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case s.ID == "":
		return fmt.Errorf("(*PipelineStage).Upsert: id is blank")
	case s.BrokerageID == "":
		return fmt.Errorf("(*PipelineStage).Upsert: brokerage id is blank")
	case s.Name == "":
		return fmt.Errorf("(*PipelineStage).Upsert: name is blank")
	}

	if _, err := db.NewInsert().
		Model(s).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("position = EXCLUDED.position").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*PipelineStage).Upsert: %w", err)
	}
	return nil
}

func ListStages(ctx context.Context, db bun.IDB, brokerageID string) ([]PipelineStage, error) {
	stages := make([]PipelineStage, 0)
	if err := db.NewSelect().
		Model(&stages).
		Where("brokerage_id = ?", brokerageID).
		Order("position ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("ListStages: %w", err)
	}
	return stages, nil
}

// SaveStageOrder writes new positions keyed by stage id.
func SaveStageOrder(ctx context.Context, db bun.IDB, brokerageID string, order map[string]int) error {
	for stageID, position := range order {
		if _, err := db.NewUpdate().
			Model((*PipelineStage)(nil)).
			Set("position = ?", position).
			Where("id = ?", stageID).
			Where("brokerage_id = ?", brokerageID).
			Exec(ctx); err != nil {
			return fmt.Errorf("SaveStageOrder: %w", err)
		}
	}
	return nil
}

func (s *PipelineStage) ToPipeline() pipeline.Stage {
	return pipeline.Stage{ID: s.ID, Name: s.Name, Position: s.Position}
}
