package config

import (
	"fmt"
	"strings"
	"time"

	"golang-trade-clearinghouse/pkg/common"
	"golang-trade-clearinghouse/pkg/config"
)

// Ingest holds polling and archiving settings.
type Ingest struct {
	Schedule          string   `mapstructure:"schedule"`
	SourceDir         string   `mapstructure:"source_dir"`
	ArchiveDir        string   `mapstructure:"archive_dir"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	FailureLogTTL     string   `mapstructure:"failure_log_ttl"`
	CycleLock         struct {
		Enabled bool   `mapstructure:"enabled"`
		TTL     string `mapstructure:"ttl"`
	} `mapstructure:"cycle_lock"`
}

// SFTP holds credentials for the sftp driver.
type SFTP struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	KnownHostsFile string `mapstructure:"known_hosts_file"`
	DialTimeout    string `mapstructure:"dial_timeout"`
}

// S3 holds settings for the s3 driver.
type S3 struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// Local holds settings for the local driver.
type Local struct {
	Root string `mapstructure:"root"`
}

// RemoteStore selects and configures the drop location backend.
type RemoteStore struct {
	Driver string `mapstructure:"driver"`
	SFTP   SFTP   `mapstructure:"sftp"`
	S3     S3     `mapstructure:"s3"`
	Local  Local  `mapstructure:"local"`
}

// Compliance lists enabled rules and their thresholds.
type Compliance struct {
	Rules                   []string `mapstructure:"rules"`
	ConcentrationThreshold  string   `mapstructure:"concentration_threshold"`
	LargeOrderQuantityLimit int64    `mapstructure:"large_order_quantity_limit"`
}

// Telegram holds configuration for the Telegram alert sink.
type Telegram struct {
	Enabled           bool    `mapstructure:"enabled"`
	BotToken          string  `mapstructure:"bot_token"`
	ChatID            int64   `mapstructure:"chat_id"`
	MaxMessagesPerSec float64 `mapstructure:"max_messages_per_sec"`
}

// RedisStream holds configuration for the Redis stream alert sink.
type RedisStream struct {
	Enabled bool   `mapstructure:"enabled"`
	Stream  string `mapstructure:"stream"`
}

// Kafka holds configuration for the Kafka alert sink.
type Kafka struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// Notifier groups the alert sinks.
type Notifier struct {
	Telegram    Telegram    `mapstructure:"telegram"`
	RedisStream RedisStream `mapstructure:"redis_stream"`
	Kafka       Kafka       `mapstructure:"kafka"`
}

// Config holds the full configuration for the ingestion service.
type Config struct {
	App         config.App      `mapstructure:"app"`
	Logger      config.Logger   `mapstructure:"logger"`
	Database    config.Database `mapstructure:"database"`
	Redis       config.Redis    `mapstructure:"redis"`
	API         config.API      `mapstructure:"api"`
	Ingest      Ingest          `mapstructure:"ingest"`
	RemoteStore RemoteStore     `mapstructure:"remote_store"`
	Compliance  Compliance      `mapstructure:"compliance"`
	Notifier    Notifier        `mapstructure:"notifier"`
}

var defaults = map[string]interface{}{
	"app.name":                               common.ServiceName,
	"logger.level":                           "info",
	"logger.encoding":                        "json",
	"database.port":                          5432,
	"database.ssl_mode":                      "disable",
	"database.migrations_path":               "migrations",
	"database.ready_retries":                 30,
	"database.ready_interval":                "2s",
	"redis.port":                             6379,
	"redis.stream_max_len":                   10000,
	"api.port":                               5000,
	"ingest.schedule":                        "@every 10s",
	"ingest.source_dir":                      "/upload",
	"ingest.archive_dir":                     "/upload/processed",
	"ingest.allowed_extensions":              []string{".csv", ".txt", ".dat"},
	"ingest.failure_log_ttl":                 "10m",
	"ingest.cycle_lock.ttl":                  "5m",
	"remote_store.driver":                    "sftp",
	"remote_store.sftp.host":                 "sftp",
	"remote_store.sftp.port":                 22,
	"remote_store.sftp.dial_timeout":         "30s",
	"compliance.rules":                       []string{"basket_concentration"},
	"compliance.concentration_threshold":     "0.20",
	"compliance.large_order_quantity_limit":  100,
	"notifier.telegram.max_messages_per_sec": 1.0,
	"notifier.redis_stream.stream":           common.RedisStreamComplianceAlert,
	"notifier.kafka.topic":                   "compliance-alerts",
}

// Load loads the ingestion configuration from the given path.
func Load(path string) (*Config, error) {
	config.SetDefaults(defaults)

	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if _, err := c.FailureLogTTL(); err != nil {
		return err
	}
	if c.Ingest.SourceDir == "" || c.Ingest.ArchiveDir == "" {
		return fmt.Errorf("ingest.source_dir and ingest.archive_dir are required")
	}
	if strings.TrimSuffix(c.Ingest.SourceDir, "/") == strings.TrimSuffix(c.Ingest.ArchiveDir, "/") {
		return fmt.Errorf("ingest.archive_dir must differ from ingest.source_dir")
	}
	switch c.RemoteStore.Driver {
	case "sftp", "s3", "local":
	default:
		return fmt.Errorf("unsupported remote_store.driver %q", c.RemoteStore.Driver)
	}
	return nil
}

// FailureLogTTL parses ingest.failure_log_ttl.
func (c *Config) FailureLogTTL() (time.Duration, error) {
	return parseDuration("ingest.failure_log_ttl", c.Ingest.FailureLogTTL, 10*time.Minute)
}

// CycleLockTTL parses ingest.cycle_lock.ttl.
func (c *Config) CycleLockTTL() (time.Duration, error) {
	return parseDuration("ingest.cycle_lock.ttl", c.Ingest.CycleLock.TTL, 5*time.Minute)
}

// ReadyInterval parses database.ready_interval.
func (c *Config) ReadyInterval() (time.Duration, error) {
	return parseDuration("database.ready_interval", c.Database.ReadyInterval, 2*time.Second)
}

// DialTimeout parses remote_store.sftp.dial_timeout.
func (c *Config) DialTimeout() (time.Duration, error) {
	return parseDuration("remote_store.sftp.dial_timeout", c.RemoteStore.SFTP.DialTimeout, 30*time.Second)
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
