// Package modeltest opens throwaway databases for tests.
package modeltest

import (
	"context"
	"database/sql"
	"testing"

	"brokerdesk/src-server/model"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewDB returns an in-memory database with the schema in place. A single
// connection keeps every query on the same memory database.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	if err := model.CreateSchema(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return db
}

// Brokerage inserts a tenant with the given id.
func Brokerage(t testing.TB, db bun.IDB, id string) *model.Brokerage {
	t.Helper()

	b := &model.Brokerage{ID: id, Name: "Brokerage " + id}
	if err := b.Upsert(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return b
}

// Stage inserts a pipeline stage.
func Stage(t testing.TB, db bun.IDB, brokerageID, id string, position int) *model.PipelineStage {
	t.Helper()

	s := &model.PipelineStage{ID: id, BrokerageID: brokerageID, Name: id, Position: position}
	if err := s.Upsert(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return s
}
