package config

import "time"

// ApplyDefaults fills every unset field with its production default.  The
// infrastructure constructors apply their own low-level defaults (pool sizes,
// timeouts) on top, so only orchestration-level settings live here.
func ApplyDefaults(cfg *Config) {
	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = "arconte"
	}

	// Migrations
	if cfg.Migrations.Path == "" {
		cfg.Migrations.Path = "migrations"
	}

	// Redis
	if cfg.Redis.Addr == "" && cfg.Redis.MasterName == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	// Kafka
	if cfg.KafkaEnabled() && cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "arconte-core"
	}

	// Sync
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 5 * time.Minute
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 2 * time.Minute
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = 4
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 100
	}

	// Notifications
	if cfg.Notifications.RetentionDays == 0 {
		cfg.Notifications.RetentionDays = 90
	}
	if cfg.Notifications.HighPriorityThreshold == 0 {
		cfg.Notifications.HighPriorityThreshold = 8
	}

	// Metrics
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9102"
	}
}
