package model

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"brokerdesk/src-server/calendar"

	"github.com/uptrace/bun"
)

// A prospective client. Milestone dates are kept as the "YYYY-MM-DD"
// strings they were entered with; the calendar decides what to make of them.
type Lead struct {
	bun.BaseModel `bun:"table:leads"`

	ID          string `bun:"id,pk"`                // required
	BrokerageID string `bun:"brokerage_id,notnull"` // required
	Name        string `bun:"name,notnull"`         // required
	Email       string `bun:"email"`
	Phone       string `bun:"phone"`
	Source      string `bun:"source"`
	Notes       string `bun:"notes"`

	DateOfBirth        string `bun:"date_of_birth"`
	WeddingAnniversary string `bun:"wedding_anniversary"`
	HomeAnniversary    string `bun:"home_anniversary"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`
}

func (l *Lead) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case l.ID == "":
		return fmt.Errorf("(*Lead).Upsert: id is blank")
	case l.BrokerageID == "":
		return fmt.Errorf("(*Lead).Upsert: brokerage id is blank")
	case strings.TrimSpace(l.Name) == "":
		return fmt.Errorf("(*Lead).Upsert: name is blank")
	case l.Email != "":
		if _, err := mail.ParseAddress(l.Email); err != nil {
			return fmt.Errorf("(*Lead).Upsert: email is invalid: %w", err)
		}
	}
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))

	// the row and the revision move together
	if err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*Lead)(nil)).
			Where("id = ?", l.ID).
			Exists(ctx)
		if err != nil {
			return err
		}

		switch exists {
		case true:
			l.UpdatedAt = time.Now().UTC().Unix()
			if _, err := tx.NewUpdate().
				Model(l).
				ExcludeColumn("created_at").
				WherePK().
				Exec(ctx); err != nil {
				return err
			}
		case false:
			if l.CreatedAt == 0 {
				l.CreatedAt = time.Now().UTC().Unix()
			}
			if _, err := tx.NewInsert().
				Model(l).
				Exec(ctx); err != nil {
				return err
			}
		}

		if _, err := BumpRevision(ctx, tx, l.BrokerageID); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return fmt.Errorf("(*Lead).Upsert: %w", err)
	}
	return nil
}

// Find a lead of the brokerage by email, nil when there is none.
func FindLeadByEmail(ctx context.Context, db bun.IDB, brokerageID, email string) (*Lead, error) {
	leads := make([]Lead, 0, 1)
	if err := db.NewSelect().
		Model(&leads).
		Where("brokerage_id = ?", brokerageID).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("FindLeadByEmail: %w", err)
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

func (l *Lead) ToCalendar() calendar.Lead {
	return calendar.Lead{
		ID:                 l.ID,
		Name:               l.Name,
		DateOfBirth:        l.DateOfBirth,
		WeddingAnniversary: l.WeddingAnniversary,
		HomeAnniversary:    l.HomeAnniversary,
	}
}
