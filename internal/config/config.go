// Package config loads the service configuration from a YAML file with
// environment variable overrides for the secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cpconnect/chms-sync/internal/chms"
	"github.com/cpconnect/chms-sync/internal/customfields"
	"github.com/cpconnect/chms-sync/internal/mapping"
	"github.com/cpconnect/chms-sync/internal/media"
	"github.com/cpconnect/chms-sync/internal/wordpress"
)

// Config holds all configuration for the sync service.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Redis     RedisConfig      `yaml:"redis"`
	Sync      SyncConfig       `yaml:"sync"`
	ChMS      chms.Config      `yaml:"chms"`
	WordPress wordpress.Config `yaml:"wordpress"`
	Media     media.Config     `yaml:"media"`
}

// ServerConfig holds the API listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection settings for the job queue
// and distributed locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SyncConfig holds the schedule and the per-content-type mapping
// configuration.
type SyncConfig struct {
	IntervalMinutes int                 `yaml:"interval_minutes"`
	ContentTypes    []ContentTypeConfig `yaml:"content_types"`
}

// Interval returns the scheduler cadence.
func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// ContentTypeConfig configures one synced content type: which type it
// is, how to map its source fields, and where it lands in WordPress.
type ContentTypeConfig struct {
	Type         string                 `yaml:"type"`
	RestBase     string                 `yaml:"rest_base"`
	Mapping      mapping.FieldMapping   `yaml:"mapping"`
	CustomFields []customfields.Mapping `yaml:"custom_fields"`
	Defaults     map[string]interface{} `yaml:"defaults"`
}

// Load reads and validates the YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Sync.IntervalMinutes == 0 {
		cfg.Sync.IntervalMinutes = 60
	}
}

// LoadFromEnv loads the config file and applies environment variable
// overrides. A .env file is read first when present, so secrets can
// live there locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("CHMS_VENDOR"); v != "" {
		cfg.ChMS.Vendor = v
	}
	if v := os.Getenv("MP_CLIENT_ID"); v != "" {
		cfg.ChMS.MinistryPlatform.ClientID = v
	}
	if v := os.Getenv("MP_CLIENT_SECRET"); v != "" {
		cfg.ChMS.MinistryPlatform.ClientSecret = v
	}
	if v := os.Getenv("PCO_APP_ID"); v != "" {
		cfg.ChMS.PCO.AppID = v
	}
	if v := os.Getenv("PCO_APP_SECRET"); v != "" {
		cfg.ChMS.PCO.AppSecret = v
	}
	if v := os.Getenv("CCB_USERNAME"); v != "" {
		cfg.ChMS.CCB.Username = v
	}
	if v := os.Getenv("CCB_PASSWORD"); v != "" {
		cfg.ChMS.CCB.Password = v
	}
	if v := os.Getenv("ROCK_API_KEY"); v != "" {
		cfg.ChMS.RockRMS.APIKey = v
	}

	if v := os.Getenv("WP_BASE_URL"); v != "" {
		cfg.WordPress.BaseURL = v
	}
	if v := os.Getenv("WP_USERNAME"); v != "" {
		cfg.WordPress.Username = v
	}
	if v := os.Getenv("WP_APP_PASSWORD"); v != "" {
		cfg.WordPress.AppPassword = v
	}

	if v := os.Getenv("MEDIA_S3_BUCKET"); v != "" {
		cfg.Media.S3.Bucket = v
	}
	if v := os.Getenv("MEDIA_S3_REGION"); v != "" {
		cfg.Media.S3.Region = v
	}
	if v := os.Getenv("MEDIA_S3_ACCESS_KEY_ID"); v != "" {
		cfg.Media.S3.AccessKeyID = v
	}
	if v := os.Getenv("MEDIA_S3_SECRET_ACCESS_KEY"); v != "" {
		cfg.Media.S3.SecretAccessKey = v
	}

	return cfg, nil
}
