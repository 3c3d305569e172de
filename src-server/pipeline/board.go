package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"
)

var ErrDealNotFound = errors.New("deal not on board")
var ErrStageNotFound = errors.New("stage not on board")

// The fields of a deal the board and reports need.
type Deal struct {
	ID              string
	Title           string
	StageID         string
	Position        int
	Status          Status
	Source          string
	PriceCents      int64
	CommissionCents int64
	// zero when unknown
	ExpectedClose time.Time
	ClosedAt      time.Time
}

type Stage struct {
	ID       string
	Name     string
	Position int
}

type Column struct {
	StageID string   `json:"stageId"`
	Name    string   `json:"name"`
	DealIDs []string `json:"dealIds"`
}

// Board is the pipeline as the kanban view shows it: one column per stage,
// deals ordered top to bottom.
type Board struct {
	Columns []Column `json:"columns"`
}

// BuildBoard lays deals into their stage columns. Deals pointing at an
// unknown stage are left off the board.
func BuildBoard(stages []Stage, deals []Deal) Board {
	stages = slices.Clone(stages)
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })

	deals = slices.Clone(deals)
	sort.SliceStable(deals, func(i, j int) bool {
		if deals[i].Position != deals[j].Position {
			return deals[i].Position < deals[j].Position
		}
		return deals[i].ID < deals[j].ID
	})

	board := Board{Columns: make([]Column, 0, len(stages))}
	index := make(map[string]int, len(stages))
	for i, stage := range stages {
		index[stage.ID] = i
		board.Columns = append(board.Columns, Column{StageID: stage.ID, Name: stage.Name, DealIDs: make([]string, 0)})
	}
	for _, deal := range deals {
		i, ok := index[deal.StageID]
		if !ok {
			continue
		}
		board.Columns[i].DealIDs = append(board.Columns[i].DealIDs, deal.ID)
	}
	return board
}

// An Action is one user gesture on the board.
type Action interface {
	apply(Board) (Board, error)
}

// Put a deal into a stage column at an index. The index is clamped to the
// column length.
type MoveDeal struct {
	DealID  string `json:"dealId"`
	ToStage string `json:"toStage"`
	ToIndex int    `json:"toIndex"`
}

// Swap column order.
type MoveStage struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Apply returns the board after action. board is never modified.
func Apply(board Board, action Action) (Board, error) {
	if action == nil {
		return board.clone(), nil
	}
	return action.apply(board.clone())
}

func (a MoveDeal) apply(b Board) (Board, error) {
	target := -1
	for i, col := range b.Columns {
		if col.StageID == a.ToStage {
			target = i
			break
		}
	}
	if target < 0 {
		return Board{}, fmt.Errorf("MoveDeal: %s: %w", a.ToStage, ErrStageNotFound)
	}

	found := false
	for i, col := range b.Columns {
		if at := slices.Index(col.DealIDs, a.DealID); at >= 0 {
			b.Columns[i].DealIDs = slices.Delete(col.DealIDs, at, at+1)
			found = true
			break
		}
	}
	if !found {
		return Board{}, fmt.Errorf("MoveDeal: %s: %w", a.DealID, ErrDealNotFound)
	}

	ids := b.Columns[target].DealIDs
	at := min(max(a.ToIndex, 0), len(ids))
	b.Columns[target].DealIDs = slices.Insert(ids, at, a.DealID)
	return b, nil
}

func (a MoveStage) apply(b Board) (Board, error) {
	columns, err := Reorder(b.Columns, a.From, a.To)
	if err != nil {
		return Board{}, fmt.Errorf("MoveStage: %w", err)
	}
	b.Columns = columns
	return b, nil
}

func (b Board) clone() Board {
	c := Board{Columns: make([]Column, len(b.Columns))}
	for i, col := range b.Columns {
		c.Columns[i] = Column{StageID: col.StageID, Name: col.Name, DealIDs: slices.Clone(col.DealIDs)}
		if c.Columns[i].DealIDs == nil {
			c.Columns[i].DealIDs = make([]string, 0)
		}
	}
	return c
}

// Placement of a deal after the board has been rearranged.
type Slot struct {
	StageID  string
	Position int
}

// Slots flattens the board into per-deal stage and position, ready to be
// written back to storage.
func (b Board) Slots() map[string]Slot {
	slots := make(map[string]Slot)
	for _, col := range b.Columns {
		for i, id := range col.DealIDs {
			slots[id] = Slot{StageID: col.StageID, Position: i}
		}
	}
	return slots
}

// Stage positions in current column order.
func (b Board) StageOrder() map[string]int {
	order := make(map[string]int, len(b.Columns))
	for i, col := range b.Columns {
		order[col.StageID] = i
	}
	return order
}
