package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Privacy   PrivacyConfig   `yaml:"privacy"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	Mode        string   `yaml:"mode"` // debug, release, test
	CORSOrigins []string `yaml:"cors_origins"`
	// TrustActorHeader accepts X-Actor-ID as the acting user. Enable only
	// behind a proxy that sets it after authenticating.
	TrustActorHeader bool `yaml:"trust_actor_header"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"` // sqlite, mysql, postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite settings (local development)
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
	Index   string `yaml:"index"`
}

// PrivacyConfig contains token derivation, scrubbing and erasure settings
type PrivacyConfig struct {
	TokenSecret  string      `yaml:"token_secret"`
	TokenContext string      `yaml:"token_context"`
	Scrub        ScrubConfig `yaml:"scrub"`
	Sweep        SweepConfig `yaml:"sweep"`
}

// ScrubConfig is the redaction policy for soft-deleted free text
type ScrubConfig struct {
	Replacement   string   `yaml:"replacement"`
	EmailPattern  string   `yaml:"email_pattern"`
	PhonePattern  string   `yaml:"phone_pattern"`
	ExtraPatterns []string `yaml:"extra_patterns"`
}

// SweepConfig controls the scheduled privacy erasure job
type SweepConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DailyRunTime string `yaml:"daily_run_time"`
	GraceDays    int    `yaml:"grace_days"`
	MaxErasures  int    `yaml:"max_erasures"`
	DryRun       bool   `yaml:"dry_run"`
	ActorID      uint   `yaml:"actor_id"` // system user recorded as deleted_by, 0 for none
}

// RateLimitConfig limits destructive admin requests per actor
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Database: DatabaseConfig{
			Type:   "sqlite",
			SQLite: SQLiteConfig{Path: "rental.db"},
			Postgres: PostgresConfig{
				Port:    5432,
				SSLMode: "disable",
			},
			MySQL: MySQLConfig{Port: 3306},
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Host:  "http://meilisearch:7700",
				Index: "properties",
			},
		},
		Privacy: PrivacyConfig{
			TokenContext: "moderation",
			Scrub: ScrubConfig{
				Replacement: "[redacted]",
			},
			Sweep: SweepConfig{
				Enabled:      false,
				DailyRunTime: "03:00",
				GraceDays:    30,
				MaxErasures:  500,
				DryRun:       false,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			Burst:             5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file, then applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	config.overrideFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks settings that would otherwise fail late.
// The token secret is checked by token.New at startup.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %q", c.Database.Type)
	}
	if c.Privacy.Sweep.GraceDays < 0 {
		return fmt.Errorf("privacy.sweep.grace_days must not be negative")
	}
	return nil
}

func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DB_TYPE"); v != "" {
		c.Database.Type = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.MySQL.Host = v
		c.Database.Postgres.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.MySQL.Port = port
			c.Database.Postgres.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.MySQL.User = v
		c.Database.Postgres.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.MySQL.Password = v
		c.Database.Postgres.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.MySQL.Database = v
		c.Database.Postgres.Database = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLite.Path = v
	}
	if v := os.Getenv("MEILISEARCH_HOST"); v != "" {
		c.Search.Meilisearch.Host = v
		c.Search.Meilisearch.Enabled = true
	}
	if v := os.Getenv("MEILISEARCH_KEY"); v != "" {
		c.Search.Meilisearch.APIKey = v
	}
	if v := os.Getenv("PRIVACY_TOKEN_SECRET"); v != "" {
		c.Privacy.TokenSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
