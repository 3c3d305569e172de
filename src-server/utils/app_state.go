package utils

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"time"

	"brokerdesk/src-server/calendar"
	"brokerdesk/src-server/model"
	"brokerdesk/src-server/notify"

	"github.com/olebedev/when"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppState struct {
	Config    *Config
	RawDB     *sql.DB
	BunDB     *bun.DB
	When      *when.Parser
	Projector *calendar.Projector
	Notifier  notify.Notifier

	// names seeded into every new brokerage's pipeline
	StageNames []string

	MetricChans        *Metric
	AppCloseSignalChan chan os.Signal

	startedAt       time.Time
	shutdownMu      sync.Mutex
	shutdownSignals []chan struct{}
}

// NewAppState wires everything from the environment and exits on any setup
// failure.
func NewAppState() *AppState {
	config := NewConfig()

	rawDB, err := sql.Open(sqliteshim.ShimName, config.GetDatabasePath()+"?mode=rwc")
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	rawDB.SetMaxIdleConns(8)

	bunDB := bun.NewDB(rawDB, sqlitedialect.New())
	bunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))
	if err := model.CreateSchema(context.Background(), bunDB); err != nil {
		slog.Error("can't create database schema", "error", err)
		os.Exit(1)
	}

	as := NewAppStateWithDB(config, bunDB)
	as.RawDB = rawDB

	if as.StageNames, err = LoadStageNames(config.GetPipelineStagesFile()); err != nil {
		slog.Error("can't load pipeline stages", "error", err)
		os.Exit(1)
	}

	if webhook := config.GetDiscordWebhookURL(); webhook != "" {
		discord, err := notify.NewDiscordWebhook(webhook)
		if err != nil {
			slog.Error("invalid DISCORD_WEBHOOK_URL", "error", err)
			os.Exit(1)
		}
		as.Notifier = discord
	}

	return as
}

// NewAppStateWithDB builds the state around an already opened database,
// logging reminders instead of sending them.
func NewAppStateWithDB(config *Config, db *bun.DB) *AppState {
	as := &AppState{
		Config:             config,
		BunDB:              db,
		When:               NewWhenParser(),
		Notifier:           notify.LogNotifier{},
		StageNames:         DefaultStageNames,
		MetricChans:        NewMetric(),
		AppCloseSignalChan: make(chan os.Signal, 1),
		startedAt:          time.Now(),
	}

	projector, err := calendar.NewProjector(config.GetProjectionCacheSize())
	if err != nil {
		slog.Error("can't create calendar projector", "error", err)
		os.Exit(1)
	}
	projector.OnBuild = func(d time.Duration) {
		as.MetricChans.Observe(as.MetricChans.Projection, float64(d.Microseconds()))
	}
	as.Projector = projector

	return as
}

func (as *AppState) GetUptime() time.Duration {
	return time.Since(as.startedAt).Round(time.Second)
}

// CreateGracefulShutdownChan hands out a channel closed by GracefulShutdown.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	as.shutdownMu.Lock()
	defer as.shutdownMu.Unlock()

	ch := make(chan struct{})
	as.shutdownSignals = append(as.shutdownSignals, ch)
	return &ch
}

func (as *AppState) GracefulShutdown() {
	as.shutdownMu.Lock()
	for _, ch := range as.shutdownSignals {
		close(ch)
	}
	as.shutdownSignals = nil
	as.shutdownMu.Unlock()

	if err := as.BunDB.Close(); err != nil {
		slog.Warn("can't close database", "error", err)
	}
}
