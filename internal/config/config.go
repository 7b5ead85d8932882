// Package config loads the service configuration from defaults, an optional
// YAML file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
	DriverMemory   = "memory"
)

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/chart-engine/config.yaml",
}

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	Redis     RedisConfig     `koanf:"redis"`
	Storage   StorageConfig   `koanf:"storage"`
	Charts    ChartsConfig    `koanf:"charts"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Sources   SourcesConfig   `koanf:"sources"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

type PostgresConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// RedisConfig configures the distributed chart lock. An empty Addr selects the
// in-process locker.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type StorageConfig struct {
	Driver    string `koanf:"driver"`
	BadgerDir string `koanf:"badger_dir"`
}

type ChartsConfig struct {
	LockTimeout    time.Duration `koanf:"lock_timeout"`
	LockRetryDelay time.Duration `koanf:"lock_retry_delay"`
}

type SchedulerConfig struct {
	Enabled       bool   `koanf:"enabled"`
	MinorSpec     string `koanf:"minor_spec"`
	MajorSpec     string `koanf:"major_spec"`
	Concurrency   int    `koanf:"concurrency"`
	ResyncOnStart bool   `koanf:"resync_on_start"`
}

// SourcesConfig tunes the ground-truth queries behind the major ticks.
type SourcesConfig struct {
	BlockedHosts []string `koanf:"blocked_hosts"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Storage: StorageConfig{
			Driver:    DriverPostgres,
			BadgerDir: "/data/charts",
		},
		Charts: ChartsConfig{
			LockTimeout:    10 * time.Second,
			LockRetryDelay: 50 * time.Millisecond,
		},
		Scheduler: SchedulerConfig{
			Enabled:     true,
			MinorSpec:   "@hourly",
			MajorSpec:   "@daily",
			Concurrency: 4,
		},
		Sources: SourcesConfig{
			BlockedHosts: []string{},
		},
	}
}

// Load layers defaults, the config file (if any) and environment variables,
// then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"sources.blocked_hosts",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_port":                  "server.port",
	"http_shutdown_timeout":      "server.shutdown_timeout",
	"log_level":                  "logging.level",
	"log_format":                 "logging.format",
	"log_caller":                 "logging.caller",
	"postgres_dsn":               "postgres.dsn",
	"postgres_max_open_conns":    "postgres.max_open_conns",
	"postgres_max_idle_conns":    "postgres.max_idle_conns",
	"postgres_conn_max_lifetime": "postgres.conn_max_lifetime",
	"redis_addr":                 "redis.addr",
	"redis_password":             "redis.password",
	"redis_db":                   "redis.db",
	"storage_driver":             "storage.driver",
	"badger_dir":                 "storage.badger_dir",
	"charts_lock_timeout":        "charts.lock_timeout",
	"charts_lock_retry_delay":    "charts.lock_retry_delay",
	"scheduler_enabled":          "scheduler.enabled",
	"scheduler_minor_spec":       "scheduler.minor_spec",
	"scheduler_major_spec":       "scheduler.major_spec",
	"scheduler_concurrency":      "scheduler.concurrency",
	"scheduler_resync_on_start":  "scheduler.resync_on_start",
	"blocked_hosts":              "sources.blocked_hosts",
}

// envTransformFunc maps known environment variables to config paths and
// drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		fail("server.port %d out of range", c.Server.Port)
	}

	drivers := []string{DriverPostgres, DriverBadger, DriverMemory}
	switch {
	case !slices.Contains(drivers, c.Storage.Driver):
		fail("storage.driver %q must be one of %s", c.Storage.Driver, strings.Join(drivers, ", "))
	case c.Storage.Driver == DriverPostgres && c.Postgres.DSN == "":
		fail("postgres.dsn is required for the postgres storage driver")
	case c.Storage.Driver == DriverBadger && c.Storage.BadgerDir == "":
		fail("storage.badger_dir is required for the badger storage driver")
	}

	if c.Charts.LockTimeout <= 0 {
		fail("charts.lock_timeout must be positive")
	}
	if c.Charts.LockRetryDelay <= 0 || c.Charts.LockRetryDelay >= c.Charts.LockTimeout {
		fail("charts.lock_retry_delay must be positive and below the lock timeout")
	}

	if c.Scheduler.Enabled {
		if c.Scheduler.MinorSpec == "" || c.Scheduler.MajorSpec == "" {
			fail("scheduler specs must not be empty")
		}
		if c.Scheduler.Concurrency < 1 {
			fail("scheduler.concurrency must be at least 1")
		}
	}

	return errors.Join(errs...)
}
