package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brokerdesk/src-server/metric"
	"brokerdesk/src-server/route"
	"brokerdesk/src-server/scheduler"
	"brokerdesk/src-server/utils"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Info(err.Error())
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func main() {
	as := utils.NewAppState()

	go metric.Init(as)

	if _, err := scheduler.TaskReminder(as); err != nil {
		slog.Error("can't start task reminder", "error", err)
		os.Exit(1)
	}

	// http server
	go func() {
		muxer := http.NewServeMux()
		muxer.Handle("GET /metrics", promhttp.Handler())
		route.Ping(muxer, as)
		route.Brokerage(muxer, as)
		route.Lead(muxer, as)
		route.Task(muxer, as)
		route.Deal(muxer, as)
		route.Pipeline(muxer, as)
		route.OpenHouse(muxer, as)
		route.Calendar(muxer, as)
		route.Report(muxer, as)
		route.Ical(muxer, as)
		if err := http.ListenAndServe(":"+as.Config.GetPort(), muxer); err != nil {
			slog.Error("cannot start HTTP server", "error", err)
			as.AppCloseSignalChan <- syscall.SIGTERM
		}
	}()

	slog.Info("app is now running, press Ctrl+C to exit", "port", as.Config.GetPort())

	signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-as.AppCloseSignalChan
	as.GracefulShutdown()

	slog.Info("Gracefully shutting down...")
}
