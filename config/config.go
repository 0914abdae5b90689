package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL  = "https://api-school.apple.com/v1/"
	DefaultTokenURL = "https://account.apple.com/auth/oauth2/token"
	DefaultAudience = "https://account.apple.com/auth/oauth2/v2/token"
	DefaultScope    = "school.api"
)

var (
	errMissingClientID = errors.New("credentials.client_id is required")
	errMissingKeyID    = errors.New("credentials.key_id is required")
	errMissingKeyPath  = errors.New("credentials.private_key_path is required")
)

// Config represents the overall application configuration.
type Config struct {
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
	Sync        SyncConfig        `yaml:"sync"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	Database    DatabaseConfig    `yaml:"database"`
	Push        PushConfig        `yaml:"push"`
	WorkerPool  WorkerPoolConfig  `yaml:"worker_pool"`
}

// APIConfig describes the upstream inventory API and how requests to it are paced.
type APIConfig struct {
	BaseURL             string        `yaml:"base_url"`
	TokenURL            string        `yaml:"token_url"`
	Audience            string        `yaml:"audience"`
	Scope               string        `yaml:"scope"`
	PageSize            int           `yaml:"page_size"`
	HTTPProxy           string        `yaml:"http_proxy"`
	DisablePacing       bool          `yaml:"disable_pacing"`
	PacingIntervalMS    int           `yaml:"pacing_interval_ms"`
	PacingInterval      time.Duration `yaml:"-"`
	RetryInitialDelayMS int           `yaml:"retry_initial_delay_ms"`
	RetryInitialDelay   time.Duration `yaml:"-"`
	MaxRetries          int           `yaml:"max_retries"`
	TimeoutSeconds      int           `yaml:"timeout_seconds"`
	Timeout             time.Duration `yaml:"-"`
}

// CredentialsConfig holds the identifiers and key material used to sign token assertions.
type CredentialsConfig struct {
	ClientID       string `yaml:"client_id"`
	KeyID          string `yaml:"key_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level   string `yaml:"level"`
	Output  string `yaml:"output"`
	Console bool   `yaml:"console"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// SyncConfig holds the periodic inventory sync configuration.
type SyncConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	ServerIDs       []string      `yaml:"server_ids"`
}

// AlertsConfig controls warranty expiry alerts.
type AlertsConfig struct {
	LeadDays int           `yaml:"lead_days"`
	Lead     time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path. An empty path yields
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ASM_CLIENT_ID"); v != "" {
		cfg.Credentials.ClientID = v
	}
	if v := os.Getenv("ASM_KEY_ID"); v != "" {
		cfg.Credentials.KeyID = v
	}
	if v := os.Getenv("ASM_PRIVATE_KEY_PATH"); v != "" {
		cfg.Credentials.PrivateKeyPath = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	api := &cfg.API
	if api.BaseURL == "" {
		api.BaseURL = DefaultBaseURL
	}
	if api.TokenURL == "" {
		api.TokenURL = DefaultTokenURL
	}
	if api.Audience == "" {
		api.Audience = DefaultAudience
	}
	if api.Scope == "" {
		api.Scope = DefaultScope
	}
	if api.PageSize <= 0 {
		api.PageSize = 100
	}
	if api.PacingIntervalMS <= 0 {
		api.PacingIntervalMS = 1000
	}
	api.PacingInterval = time.Duration(api.PacingIntervalMS) * time.Millisecond
	if api.RetryInitialDelayMS <= 0 {
		api.RetryInitialDelayMS = 2000
	}
	api.RetryInitialDelay = time.Duration(api.RetryInitialDelayMS) * time.Millisecond
	if api.MaxRetries <= 0 {
		api.MaxRetries = 5
	}
	if api.TimeoutSeconds <= 0 {
		api.TimeoutSeconds = 30
	}
	api.Timeout = time.Duration(api.TimeoutSeconds) * time.Second

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Sync.IntervalSeconds <= 0 {
		cfg.Sync.IntervalSeconds = 24 * 60 * 60
	}
	cfg.Sync.Interval = time.Duration(cfg.Sync.IntervalSeconds) * time.Second

	if cfg.Alerts.LeadDays <= 0 {
		cfg.Alerts.LeadDays = 30
	}
	cfg.Alerts.Lead = time.Duration(cfg.Alerts.LeadDays) * 24 * time.Hour

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
}

// ValidateCredentials reports whether enough is configured to sign a token assertion.
func (c *Config) ValidateCredentials() error {
	switch {
	case c.Credentials.ClientID == "":
		return errMissingClientID
	case c.Credentials.KeyID == "":
		return errMissingKeyID
	case c.Credentials.PrivateKeyPath == "":
		return errMissingKeyPath
	}
	return nil
}
