// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sellerops/amazon-connector/internal/spapi"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Sinks    SinksConfig    `yaml:"sinks"`
	Amazon   AmazonConfig   `yaml:"amazon"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings for the app store.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// CacheConfig defines the processed-data cache backend.
type CacheConfig struct {
	Backend string        `yaml:"backend"` // memory, redis
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig defines Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SinksConfig defines the downstream databases processed rows are saved to.
type SinksConfig struct {
	Warehouse SQLServerConfig `yaml:"warehouse"`
	Analytics SQLServerConfig `yaml:"analytics"`
}

// SQLServerConfig defines one SQL Server sink (on-prem or Azure SQL).
type SQLServerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DSN returns a sqlserver connection URL.
func (s *SQLServerConfig) DSN() string {
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(s.User, s.Password),
		Host:     fmt.Sprintf("%s:%d", s.Host, s.Port),
		RawQuery: url.Values{"database": {s.Database}}.Encode(),
	}
	return u.String()
}

// AmazonConfig defines SP-API client settings.
type AmazonConfig struct {
	CredentialFile string        `yaml:"credential_file"`
	LWATokenURL    string        `yaml:"lwa_token_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxOrders      int           `yaml:"max_orders"`

	Orders  RateConfig    `yaml:"orders"`
	Items   RateConfig    `yaml:"items"`
	Breaker BreakerConfig `yaml:"breaker"`
	Retry   RetryConfig   `yaml:"retry"`
	Batch   BatchConfig   `yaml:"batch"`
}

// RateConfig defines one endpoint class's token bucket.
type RateConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     float64 `yaml:"burst"`
}

// BreakerConfig defines circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
}

// RetryConfig defines the retry policy.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// BatchConfig defines adaptive batch sizing bounds.
type BatchConfig struct {
	Initial       int `yaml:"initial"`
	Min           int `yaml:"min"`
	Max           int `yaml:"max"`
	WorkerCeiling int `yaml:"worker_ceiling"`
}

// ScheduleConfig defines cron intervals and which marketplaces they cover.
type ScheduleConfig struct {
	Marketplaces      []string      `yaml:"marketplaces"`
	FetchInterval     time.Duration `yaml:"fetch_interval"`
	InventoryInterval time.Duration `yaml:"inventory_interval"`
	FetchLookback     time.Duration `yaml:"fetch_lookback"`
	StaleAfter        time.Duration `yaml:"stale_after"`
}

// NotifyConfig defines where failed scheduled runs are reported. An empty
// webhook URL disables alerting.
type NotifyConfig struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyCacheDefaults(&cfg.Cache)
	applySinkDefaults(&cfg.Sinks.Warehouse)
	applySinkDefaults(&cfg.Sinks.Analytics)
	applyAmazonDefaults(&cfg.Amazon)
	applyScheduleDefaults(&cfg.Schedule)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 120 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyCacheDefaults(c *CacheConfig) {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.TTL == 0 {
		c.TTL = 24 * time.Hour
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
}

func applySinkDefaults(s *SQLServerConfig) {
	if s.Port == 0 {
		s.Port = 1433
	}
}

func applyAmazonDefaults(a *AmazonConfig) {
	if a.CredentialFile == "" {
		a.CredentialFile = "credentials.json"
	}
	if a.LWATokenURL == "" {
		a.LWATokenURL = "https://api.amazon.com/auth/o2/token"
	}
	if a.RequestTimeout == 0 {
		a.RequestTimeout = 60 * time.Second
	}
	if a.Orders.PerSecond == 0 {
		a.Orders.PerSecond = 0.0167
	}
	if a.Orders.Burst == 0 {
		a.Orders.Burst = 10
	}
	if a.Items.PerSecond == 0 {
		a.Items.PerSecond = 0.33
	}
	if a.Items.Burst == 0 {
		a.Items.Burst = 15
	}
	if a.Breaker.FailureThreshold == 0 {
		a.Breaker.FailureThreshold = 5
	}
	if a.Breaker.RecoveryTimeout == 0 {
		a.Breaker.RecoveryTimeout = 60 * time.Second
	}
	if a.Retry.MaxRetries == 0 {
		a.Retry.MaxRetries = 5
	}
	if a.Retry.BaseDelay == 0 {
		a.Retry.BaseDelay = time.Second
	}
	if a.Retry.MaxDelay == 0 {
		a.Retry.MaxDelay = 5 * time.Minute
	}
	if a.Batch.Initial == 0 {
		a.Batch.Initial = 10
	}
	if a.Batch.Min == 0 {
		a.Batch.Min = 5
	}
	if a.Batch.Max == 0 {
		a.Batch.Max = 20
	}
	if a.Batch.WorkerCeiling == 0 {
		a.Batch.WorkerCeiling = 3
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.FetchInterval == 0 {
		s.FetchInterval = 6 * time.Hour
	}
	if s.InventoryInterval == 0 {
		s.InventoryInterval = 24 * time.Hour
	}
	if s.FetchLookback == 0 {
		s.FetchLookback = 24 * time.Hour
	}
	if s.StaleAfter == 0 {
		s.StaleAfter = 2 * time.Hour
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf(
			"cache.backend must be one of: memory, redis (got %q)", cfg.Cache.Backend,
		))
	}

	for _, s := range []struct {
		name string
		cfg  *SQLServerConfig
	}{
		{"sinks.warehouse", &cfg.Sinks.Warehouse},
		{"sinks.analytics", &cfg.Sinks.Analytics},
	} {
		if !s.cfg.Enabled {
			continue
		}
		if s.cfg.Host == "" {
			errs = append(errs, fmt.Errorf("%s.host is required when enabled", s.name))
		}
		if s.cfg.Database == "" {
			errs = append(errs, fmt.Errorf("%s.database is required when enabled", s.name))
		}
	}

	b := cfg.Amazon.Batch
	if b.Min > b.Initial || b.Initial > b.Max {
		errs = append(errs, fmt.Errorf(
			"amazon.batch bounds must satisfy min <= initial <= max (got %d <= %d <= %d)",
			b.Min, b.Initial, b.Max,
		))
	}
	if b.WorkerCeiling < 1 {
		errs = append(errs, fmt.Errorf(
			"amazon.batch.worker_ceiling must be >= 1 (got %d)", b.WorkerCeiling,
		))
	}

	for _, id := range cfg.Schedule.Marketplaces {
		if !spapi.SupportedMarketplace(id) {
			errs = append(errs, fmt.Errorf("schedule.marketplaces: unknown marketplace %q", id))
		}
	}

	return errors.Join(errs...)
}
