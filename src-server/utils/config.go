package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	port         string
	databasePath string

	discordWebhookURL string
	reminderLeadTime  time.Duration

	metricCollectionInterval time.Duration
	projectionCacheSize      int
	pipelineStagesFile       string
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),
		databasePath: func() string {
			path := os.Getenv("DATABASE_PATH")
			if path == "" {
				path = "./sqlite.db"
			}
			slog.Debug("env", "DATABASE_PATH", path)
			return filepath.Clean(path)
		}(),

		discordWebhookURL: func() string {
			url := strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL"))
			if url == "" {
				slog.Warn("DISCORD_WEBHOOK_URL is not set, task reminders will only be logged")
				return ""
			}
			slog.Debug("env", "DISCORD_WEBHOOK_URL", "set")
			return url
		}(),
		reminderLeadTime: durationEnv("REMINDER_LEAD_TIME", "15m"),

		metricCollectionInterval: durationEnv("METRIC_COLLECTION_INTERVAL", "30s"),
		projectionCacheSize: func() int {
			raw := os.Getenv("PROJECTION_CACHE_SIZE")
			if raw == "" {
				return 256
			}
			size, err := strconv.Atoi(raw)
			if err != nil || size <= 0 {
				slog.Error("invalid PROJECTION_CACHE_SIZE", "value", raw, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "PROJECTION_CACHE_SIZE", size)
			return size
		}(),
		pipelineStagesFile: func() string {
			path := os.Getenv("PIPELINE_STAGES_FILE")
			if path == "" {
				return ""
			}
			if _, err := os.Stat(path); err != nil {
				slog.Error("can't read PIPELINE_STAGES_FILE", "path", path, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "PIPELINE_STAGES_FILE", path)
			return filepath.Clean(path)
		}(),
	}
}

func durationEnv(key, fallback string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		raw = fallback
	}
	duration, err := time.ParseDuration(raw)
	if err != nil || duration <= 0 {
		slog.Error("invalid duration", "key", key, "value", raw, "error", err)
		os.Exit(1)
	}
	slog.Debug("env", key, raw, "duration", duration)
	return duration
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DATABASE_PATH env, default to ./sqlite.db
func (c *Config) GetDatabasePath() string {
	return c.databasePath
}

// Get DISCORD_WEBHOOK_URL env, may be blank
func (c *Config) GetDiscordWebhookURL() string {
	return c.discordWebhookURL
}

// Get REMINDER_LEAD_TIME env, default to 15m
func (c *Config) GetReminderLeadTime() time.Duration {
	return c.reminderLeadTime
}

// Get METRIC_COLLECTION_INTERVAL env, default to 30s
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

// Get PROJECTION_CACHE_SIZE env, default to 256
func (c *Config) GetProjectionCacheSize() int {
	return c.projectionCacheSize
}

// Get PIPELINE_STAGES_FILE env, may be blank
func (c *Config) GetPipelineStagesFile() string {
	return c.pipelineStagesFile
}

// DefaultConfig holds the fallback of every setting without reading the
// environment.
func DefaultConfig() *Config {
	return &Config{
		port:                     "8080",
		databasePath:             "./sqlite.db",
		reminderLeadTime:         15 * time.Minute,
		metricCollectionInterval: 30 * time.Second,
		projectionCacheSize:      256,
	}
}
