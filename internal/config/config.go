// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig is optional. With an empty URL expiry jobs are scheduled in-process.
type RedisConfig struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// KafkaConfig is optional. With no brokers welcome notifications are only logged.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type SchedulerConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	BatchSize         int           `yaml:"batch_size"`
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`
	MaxDeliveries     int           `yaml:"max_deliveries"`
	Workers           int           `yaml:"workers"`
}

type ShopConfig struct {
	Timezone        string `yaml:"timezone"`
	ReferencePrefix string `yaml:"reference_prefix"`
	Language        string `yaml:"language"` // welcome message locale: en|sv
}

type SecurityConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	AdminAPIKey string        `yaml:"admin_api_key"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	// PayoutKey enables encryption of shop payout accounts at rest (16, 24 or 32 bytes).
	PayoutKey string `yaml:"payout_key"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Shop      ShopConfig      `yaml:"shop"`
	Security  SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the yaml file at path, applies defaults and validates
// required fields.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if _, err := time.LoadLocation(cfg.Shop.Timezone); err != nil {
		return nil, fmt.Errorf("shop.timezone: %w", err)
	}
	if cfg.Security.AdminAPIKey != "" && cfg.Security.JWTSecret == "" {
		return nil, errors.New("security.jwt_secret is required when admin_api_key is set")
	}
	switch len(cfg.Security.PayoutKey) {
	case 0, 16, 24, 32:
	default:
		return nil, errors.New("security.payout_key must be 16, 24, or 32 bytes")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	c.HTTP.ReadTimeout = orDefault(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = orDefault(c.HTTP.WriteTimeout, 15*time.Second)
	c.HTTP.RequestTimeout = orDefault(c.HTTP.RequestTimeout, 10*time.Second)
	c.HTTP.ShutdownTimeout = orDefault(c.HTTP.ShutdownTimeout, 10*time.Second)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "shop"
	}
	c.Redis.KeyPrefix = strings.TrimSuffix(c.Redis.KeyPrefix, ":")
	if c.Kafka.Topic == "" && len(c.Kafka.Brokers) > 0 {
		c.Kafka.Topic = "shop.welcome"
	}

	c.Scheduler.PollInterval = orDefault(c.Scheduler.PollInterval, time.Second)
	c.Scheduler.SweepInterval = orDefault(c.Scheduler.SweepInterval, time.Minute)
	c.Scheduler.VisibilityTimeout = orDefault(c.Scheduler.VisibilityTimeout, 30*time.Second)
	if c.Scheduler.BatchSize <= 0 {
		c.Scheduler.BatchSize = 50
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = 4
	}
	if c.Scheduler.MaxDeliveries <= 0 {
		c.Scheduler.MaxDeliveries = 5
	}

	if c.Shop.Timezone == "" {
		c.Shop.Timezone = "Europe/Stockholm"
	}
	if c.Shop.Language == "" {
		c.Shop.Language = "en"
	}
	if c.Shop.ReferencePrefix == "" {
		c.Shop.ReferencePrefix = "Shop activation"
	}
	c.Security.TokenTTL = orDefault(c.Security.TokenTTL, time.Hour)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
