// Package config loads clipnotes server configuration from an optional
// YAML file, applies CLIPNOTES_* environment overrides, and fills defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidValue is returned when a config value is out of bounds.
var ErrInvalidValue = errors.New("invalid config value")

// Defaults applied when a value is not configured.
const (
	DefaultListenAddr      = ":8080"
	DefaultLogLevel        = "info"
	DefaultDialect         = "sqlite"
	DefaultDSN             = "clipnotes.db"
	DefaultPlatformBaseURL = "https://api.vidplatform.example/v3"
	DefaultSessionTTLHours = 24 * 7
	DefaultBackupInterval  = 24
	DefaultBackupRetention = 30
)

// Validation bounds.
const (
	MinSessionTTLHours = 1
	MaxSessionTTLHours = 24 * 30
	MinBackupInterval  = 1
	MaxBackupInterval  = 24 * 7
	MinBackupRetention = 1
	MaxBackupRetention = 365
)

type Database struct {
	// Dialect selects the storage backend: "sqlite" or "postgres".
	Dialect string `yaml:"dialect,omitempty"`
	DSN     string `yaml:"dsn,omitempty"`
}

type Platform struct {
	BaseURL string `yaml:"base_url,omitempty"`
}

type Session struct {
	// Secret keys the at-rest encryption of platform tokens. Required.
	Secret   string `yaml:"secret,omitempty"`
	TTLHours int    `yaml:"ttl_hours,omitempty"`
}

type S3 struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

type Backup struct {
	Enabled       bool   `yaml:"enabled,omitempty"`
	IntervalHours int    `yaml:"interval_hours,omitempty"`
	RetentionDays int    `yaml:"retention_days,omitempty"`
	Passphrase    string `yaml:"passphrase,omitempty"`
	S3            S3     `yaml:"s3,omitempty"`
}

// Config contains the full server configuration.
type Config struct {
	ListenAddr  string   `yaml:"listen_addr,omitempty"`
	LogLevel    string   `yaml:"log_level,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
	Database    Database `yaml:"database,omitempty"`
	Platform    Platform `yaml:"platform,omitempty"`
	Session     Session  `yaml:"session,omitempty"`
	Backup      Backup   `yaml:"backup,omitempty"`
}

// Load reads the config file at path (missing file is not an error),
// applies environment overrides, fills defaults, and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to env and defaults
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.ListenAddr, "CLIPNOTES_ADDR")
	setString(&c.LogLevel, "CLIPNOTES_LOG_LEVEL")
	setString(&c.Database.Dialect, "CLIPNOTES_DB_DIALECT")
	setString(&c.Database.DSN, "CLIPNOTES_DB_DSN")
	setString(&c.Platform.BaseURL, "CLIPNOTES_PLATFORM_URL")
	setString(&c.Session.Secret, "CLIPNOTES_SESSION_SECRET")
	setInt(&c.Session.TTLHours, "CLIPNOTES_SESSION_TTL_HOURS")
	setInt(&c.Backup.RetentionDays, "CLIPNOTES_BACKUP_RETENTION_DAYS")
	setString(&c.Backup.Passphrase, "CLIPNOTES_BACKUP_PASSPHRASE")
	setString(&c.Backup.S3.Endpoint, "CLIPNOTES_S3_ENDPOINT")
	setString(&c.Backup.S3.Bucket, "CLIPNOTES_S3_BUCKET")
	setString(&c.Backup.S3.Region, "CLIPNOTES_S3_REGION")
	setString(&c.Backup.S3.AccessKey, "CLIPNOTES_S3_ACCESS_KEY")
	setString(&c.Backup.S3.SecretKey, "CLIPNOTES_S3_SECRET_KEY")

	if v := os.Getenv("CLIPNOTES_CORS_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		c.CORSOrigins = origins
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Database.Dialect == "" {
		c.Database.Dialect = DefaultDialect
	}
	if c.Database.DSN == "" {
		c.Database.DSN = DefaultDSN
	}
	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = DefaultPlatformBaseURL
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = DefaultSessionTTLHours
	}
	if c.Backup.IntervalHours == 0 {
		c.Backup.IntervalHours = DefaultBackupInterval
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = DefaultBackupRetention
	}
}

// Validate checks configured values against their bounds.
func (c *Config) Validate() error {
	switch c.Database.Dialect {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: database.dialect must be sqlite or postgres, got %q",
			ErrInvalidValue, c.Database.Dialect)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("%w: session.secret must be set", ErrInvalidValue)
	}
	if v := c.Session.TTLHours; v < MinSessionTTLHours || v > MaxSessionTTLHours {
		return fmt.Errorf("%w: session.ttl_hours must be between %d and %d, got %d",
			ErrInvalidValue, MinSessionTTLHours, MaxSessionTTLHours, v)
	}
	if c.Backup.Enabled {
		if v := c.Backup.IntervalHours; v < MinBackupInterval || v > MaxBackupInterval {
			return fmt.Errorf("%w: backup.interval_hours must be between %d and %d, got %d",
				ErrInvalidValue, MinBackupInterval, MaxBackupInterval, v)
		}
		if v := c.Backup.RetentionDays; v < MinBackupRetention || v > MaxBackupRetention {
			return fmt.Errorf("%w: backup.retention_days must be between %d and %d, got %d",
				ErrInvalidValue, MinBackupRetention, MaxBackupRetention, v)
		}
		if c.Backup.Passphrase == "" {
			return fmt.Errorf("%w: backup.passphrase must be set when backups are enabled", ErrInvalidValue)
		}
		if c.Backup.S3.Bucket == "" {
			return fmt.Errorf("%w: backup.s3.bucket must be set when backups are enabled", ErrInvalidValue)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
