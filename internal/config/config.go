// Package config defines the configuration structure for the case-tracking
// service.  No I/O or parsing logic lives here — only plain data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/ai"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/database/postgres"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/database/redis"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/ingest"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/messaging/kafka"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
)

// MigrationsConfig points the migrator at the SQL source directory.
type MigrationsConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig holds the background synchronization loop parameters.
type SyncConfig struct {
	// Interval is the pause between full passes over tracked cases.
	Interval time.Duration `mapstructure:"interval"`
	// LockTTL bounds how long a per-case sync lock may be held.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// Concurrency is the number of cases synchronized in parallel.
	Concurrency int `mapstructure:"concurrency"`
	// BatchSize caps how many cases one pass picks up.
	BatchSize int `mapstructure:"batch_size"`
}

// NotificationsConfig holds notification retention and priority parameters.
type NotificationsConfig struct {
	RetentionDays         int `mapstructure:"retention_days"`
	HighPriorityThreshold int `mapstructure:"high_priority_threshold"`
}

// MetricsConfig holds the Prometheus exposition endpoint parameters.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the root configuration structure.  Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Log           logging.LogConfig   `mapstructure:"log"`
	Database      postgres.Config     `mapstructure:"database"`
	Migrations    MigrationsConfig    `mapstructure:"migrations"`
	Redis         redis.Config        `mapstructure:"redis"`
	Kafka         kafka.Config        `mapstructure:"kafka"`
	Ingest        ingest.Config       `mapstructure:"ingest"`
	AI            ai.Config           `mapstructure:"ai"`
	Sync          SyncConfig          `mapstructure:"sync"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// KafkaEnabled reports whether event publishing is configured at all.  The
// pipeline runs without a broker; publishing is best-effort.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// AIEnabled reports whether the classification fallback model is configured.
func (c *Config) AIEnabled() bool {
	return c.AI.Endpoint != "" && c.AI.APIKey != ""
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start.
func (c *Config) Validate() error {
	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.Username == "" {
		return fmt.Errorf("config: database.username is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("config: database.database is required")
	}

	// Redis: addr is required unless sentinel mode is configured.
	if c.Redis.Addr == "" && c.Redis.MasterName == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.MasterName != "" && len(c.Redis.SentinelAddrs) == 0 {
		return fmt.Errorf("config: redis.sentinel_addrs is required when redis.master_name is set")
	}

	// Kafka is optional; when brokers are configured the consumer side also
	// needs a group id.
	if c.KafkaEnabled() && c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required when kafka.brokers is set")
	}

	// Ingest
	if c.Ingest.BaseURL == "" {
		return fmt.Errorf("config: ingest.base_url is required")
	}
	if c.Ingest.APIKey == "" {
		return fmt.Errorf("config: ingest.api_key is required")
	}

	// AI: endpoint and key come as a pair.
	if (c.AI.Endpoint == "") != (c.AI.APIKey == "") {
		return fmt.Errorf("config: ai.endpoint and ai.api_key must be set together")
	}

	// Sync
	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("config: sync.interval must be at least 1m, got %s", c.Sync.Interval)
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("config: sync.concurrency must be at least 1, got %d", c.Sync.Concurrency)
	}

	// Notifications
	if c.Notifications.RetentionDays < 1 {
		return fmt.Errorf("config: notifications.retention_days must be at least 1, got %d", c.Notifications.RetentionDays)
	}
	if c.Notifications.HighPriorityThreshold < 0 || c.Notifications.HighPriorityThreshold > 10 {
		return fmt.Errorf("config: notifications.high_priority_threshold %d is out of range [0, 10]", c.Notifications.HighPriorityThreshold)
	}

	return nil
}
