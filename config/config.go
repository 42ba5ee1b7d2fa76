package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// AuthConfig holds the settings for validating externally issued tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// MonitorConfig holds the expiry monitor settings. The duration fields are
// derived from the yaml values in Load.
type MonitorConfig struct {
	Enabled          bool  `yaml:"enabled"`
	IntervalMinutes  int   `yaml:"interval_minutes"`
	ExpiringDays     int   `yaml:"expiring_days"`
	CooldownMinutes  int   `yaml:"cooldown_minutes"`
	DismissalHours   int   `yaml:"dismissal_hours"`
	ReconcileExpired *bool `yaml:"reconcile_expired"`

	Interval  time.Duration `yaml:"-"`
	Cooldown  time.Duration `yaml:"-"`
	Dismissal time.Duration `yaml:"-"`
}

// PushConfig holds the web push (VAPID) settings.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the notification worker pool settings.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads and parses the configuration file from the given path and
// fills in defaults for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec == 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds == 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Monitor.IntervalMinutes == 0 {
		cfg.Monitor.IntervalMinutes = 30
	}
	if cfg.Monitor.ExpiringDays == 0 {
		cfg.Monitor.ExpiringDays = 3
	}
	if cfg.Monitor.CooldownMinutes == 0 {
		cfg.Monitor.CooldownMinutes = 60
	}
	if cfg.Monitor.DismissalHours == 0 {
		cfg.Monitor.DismissalHours = 4
	}
	if cfg.Monitor.ReconcileExpired == nil {
		reconcile := true
		cfg.Monitor.ReconcileExpired = &reconcile
	}
	cfg.Monitor.Interval = time.Duration(cfg.Monitor.IntervalMinutes) * time.Minute
	cfg.Monitor.Cooldown = time.Duration(cfg.Monitor.CooldownMinutes) * time.Minute
	cfg.Monitor.Dismissal = time.Duration(cfg.Monitor.DismissalHours) * time.Hour

	if cfg.Push.TTL == 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.Push.Subject == "" {
		cfg.Push.Subject = "mailto:admin@example.com"
	}

	if cfg.WorkerPool.Size == 0 {
		cfg.WorkerPool.Size = 2
	}
}
