package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix shared by every setting.
const envPrefix = "ARCONTE"

// envKeys lists every configuration key so that viper.Unmarshal sees values
// that exist only as environment variables.  AutomaticEnv alone is not enough:
// viper only unmarshals keys it already knows about.
var envKeys = []string{
	"log.level", "log.format", "log.output_paths", "log.error_output_paths",
	"database.host", "database.port", "database.username", "database.password",
	"database.database", "database.ssl_mode", "database.max_conns",
	"database.min_conns", "database.conn_max_lifetime", "database.conn_max_idle_time",
	"migrations.path",
	"redis.addr", "redis.master_name", "redis.sentinel_addrs", "redis.username",
	"redis.password", "redis.db", "redis.pool_size", "redis.min_idle_conns",
	"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
	"kafka.brokers", "kafka.batch_timeout", "kafka.write_timeout",
	"kafka.max_retries", "kafka.sasl_mechanism", "kafka.sasl_username",
	"kafka.sasl_password", "kafka.tls_enabled", "kafka.group_id",
	"ingest.base_url", "ingest.api_key", "ingest.source", "ingest.timeout",
	"ingest.health_timeout", "ingest.max_retries", "ingest.retry_backoff",
	"ai.endpoint", "ai.api_key", "ai.model", "ai.timeout", "ai.temperature",
	"sync.interval", "sync.lock_ttl", "sync.concurrency", "sync.batch_size",
	"notifications.retention_days", "notifications.high_priority_threshold",
	"metrics.enabled", "metrics.addr",
}

// newViper builds a pre-configured viper instance: YAML file type, ARCONTE_
// env prefix, automatic env binding, and a key replacer that maps "." to "_"
// so a nested key like "database.host" resolves to ARCONTE_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges ARCONTE_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from ARCONTE_* environment variables,
// with no config file required.  This is the loading strategy for
// containerised deployments.
//
// Naming convention:
//
//	ARCONTE_<SECTION>_<FIELD>   e.g.  ARCONTE_DATABASE_HOST, ARCONTE_INGEST_API_KEY
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file changes on disk.  Intended for hot-reloading non-critical
// settings such as the log level; callers decide which subset is safe to
// apply at runtime.  If the changed file fails to parse or validate, onChange
// is not called.
//
// Watch is non-blocking; the background goroutine is managed by viper.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Callers should have called Load first; errors here would be duplicates.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on any error.  For use in main() where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
