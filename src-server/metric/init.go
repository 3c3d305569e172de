package metric

import (
	"errors"
	"log/slog"
	"time"

	"brokerdesk/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
)

func newGauge(name, help string) prometheus.Gauge {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	if err := prometheus.Register(gauge); err != nil {
		are := prometheus.AlreadyRegisteredError{}
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing
			}
		}
		slog.Error("can't register metric", "name", name, "error", err)
		return gauge
	}
	slog.Debug("metric registered", "name", name)
	return gauge
}

func unregister(name string, gauge prometheus.Gauge) {
	switch prometheus.Unregister(gauge) {
	case true:
		slog.Debug("metric unregistered", "name", name)
	case false:
		slog.Warn("metric not registered", "name", name)
	}
}

// polled samples a value every tick.
func polled(as *utils.AppState, name, help string, tickerInterval time.Duration, sample func() (float64, error)) {
	gauge := newGauge(name, help)
	gauge.Set(0)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(name, gauge)
				return
			case <-ticker.C:
				value, err := sample()
				if err != nil {
					slog.Error("can't sample metric", "name", name, "error", err)
					continue
				}
				gauge.Set(value)
			}
		}
	}()
}

// fed shows the latest value pushed through ch, falling back to 0 when
// nothing arrived for a while.
func fed(as *utils.AppState, name, help string, clearTickerInterval time.Duration, ch chan float64) {
	gauge := newGauge(name, help)
	gauge.Set(0)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		clearTicker := time.NewTicker(clearTickerInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(name, gauge)
				return
			case latency := <-ch:
				gauge.Set(latency)
				clearTicker.Reset(clearTickerInterval)
			case <-clearTicker.C:
				gauge.Set(0)
			}
		}
	}()
}

func Init(as *utils.AppState) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := tickerInterval * 2

	polled(as, "brokerdesk_database_empty_read_microsec",
		"The latency of an empty database read in microseconds",
		tickerInterval, func() (float64, error) {
			latency, err := database(as)
			return float64(latency.Microseconds()), err
		})
	polled(as, "brokerdesk_projection_cache_entries",
		"The number of calendar projections held in memory",
		tickerInterval, func() (float64, error) {
			return float64(as.Projector.Len()), nil
		})
	fed(as, "brokerdesk_database_read_microsec",
		"The latency of a database read in microseconds",
		clearTickerInterval, as.MetricChans.DatabaseRead)
	fed(as, "brokerdesk_database_write_microsec",
		"The latency of a database write in microseconds",
		clearTickerInterval, as.MetricChans.DatabaseWrite)
	fed(as, "brokerdesk_projection_build_microsec",
		"The time spent building an uncached calendar projection in microseconds",
		clearTickerInterval, as.MetricChans.Projection)
}
