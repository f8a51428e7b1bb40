package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Database.Username = "arconte"
	cfg.Ingest.BaseURL = "http://localhost:8800"
	cfg.Ingest.APIKey = "secret"
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "arconte", cfg.Database.Database)
	assert.Equal(t, "migrations", cfg.Migrations.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Sync.LockTTL)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, 100, cfg.Sync.BatchSize)
	assert.Equal(t, 90, cfg.Notifications.RetentionDays)
	assert.Equal(t, 8, cfg.Notifications.HighPriorityThreshold)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Log.Level = "debug"
	cfg.Sync.Interval = 10 * time.Minute
	ApplyDefaults(cfg)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10*time.Minute, cfg.Sync.Interval)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "text" }},
		{"missing database host", func(c *Config) { c.Database.Host = "" }},
		{"database port out of range", func(c *Config) { c.Database.Port = 70000 }},
		{"missing database username", func(c *Config) { c.Database.Username = "" }},
		{"missing redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"sentinel without addrs", func(c *Config) {
			c.Redis.MasterName = "mymaster"
			c.Redis.SentinelAddrs = nil
		}},
		{"kafka brokers without group id", func(c *Config) {
			c.Kafka.Brokers = []string{"localhost:9092"}
			c.Kafka.GroupID = ""
		}},
		{"missing ingest base url", func(c *Config) { c.Ingest.BaseURL = "" }},
		{"missing ingest api key", func(c *Config) { c.Ingest.APIKey = "" }},
		{"ai endpoint without key", func(c *Config) { c.AI.Endpoint = "https://ai.example.com" }},
		{"sync interval too short", func(c *Config) { c.Sync.Interval = 10 * time.Second }},
		{"zero sync concurrency", func(c *Config) { c.Sync.Concurrency = 0 }},
		{"zero retention days", func(c *Config) { c.Notifications.RetentionDays = 0 }},
		{"priority threshold out of range", func(c *Config) { c.Notifications.HighPriorityThreshold = 11 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestKafkaEnabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.KafkaEnabled())

	cfg.Kafka.Brokers = []string{"localhost:9092"}
	assert.True(t, cfg.KafkaEnabled())
}

func TestAIEnabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.AIEnabled())

	cfg.AI.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	cfg.AI.APIKey = "key"
	assert.True(t, cfg.AIEnabled())
}

const sampleYAML = `
log:
  level: debug
  format: console
database:
  host: db.internal
  port: 5433
  username: svc
  password: pw
  database: cases
redis:
  addr: cache.internal:6379
kafka:
  brokers: ["broker-1:9092", "broker-2:9092"]
  group_id: core
ingest:
  base_url: http://ingest.internal:8800
  api_key: top-secret
  source: ramajud
ai:
  endpoint: https://generativelanguage.googleapis.com/v1beta
  api_key: model-key
  model: gemini-2.0-flash
sync:
  interval: 15m
  concurrency: 8
notifications:
  retention_days: 30
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "cases", cfg.Database.Database)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "http://ingest.internal:8800", cfg.Ingest.BaseURL)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 8, cfg.Sync.Concurrency)
	assert.Equal(t, 30, cfg.Notifications.RetentionDays)

	// Defaults filled in around the file.
	assert.Equal(t, 2*time.Minute, cfg.Sync.LockTTL)
	assert.Equal(t, 8, cfg.Notifications.HighPriorityThreshold)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	_, err := Load(writeConfigFile(t, `
database:
  username: svc
ingest:
  base_url: http://ingest.internal:8800
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest.api_key")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ARCONTE_DATABASE_USERNAME", "svc")
	t.Setenv("ARCONTE_DATABASE_HOST", "db.internal")
	t.Setenv("ARCONTE_INGEST_BASE_URL", "http://ingest.internal:8800")
	t.Setenv("ARCONTE_INGEST_API_KEY", "top-secret")
	t.Setenv("ARCONTE_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "svc", cfg.Database.Username)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestWatch_AppliesChangedConfig(t *testing.T) {
	path := writeConfigFile(t, sampleYAML)

	changed := make(chan *Config, 1)
	Watch(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	// Rewrite until the watcher picks the change up.
	updated := strings.Replace(sampleYAML, "level: debug", "level: warn", 1)
	require.Eventually(t, func() bool {
		require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))
		select {
		case cfg := <-changed:
			return cfg.Log.Level == "warn"
		default:
			return false
		}
	}, 10*time.Second, 100*time.Millisecond)
}

func TestWatch_SkipsInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, sampleYAML)

	changed := make(chan *Config, 1)
	Watch(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	broken := strings.Replace(sampleYAML, "level: debug", "level: verbose", 1)
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o600))

	assert.Never(t, func() bool {
		select {
		case <-changed:
			return true
		default:
			return false
		}
	}, time.Second, 50*time.Millisecond)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}
