package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvAuthPassword overrides auth.password so the shared secret can stay out of the config file.
const EnvAuthPassword = "FIREXT_AUTH_PASSWORD"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Bus        BusConfig        `yaml:"bus"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	CookieSecure    bool    `yaml:"cookie_secure"`
}

// MonitorConfig controls how often the dock set is re-read and which
// timezone defines a calendar day for expiry arithmetic.
type MonitorConfig struct {
	PollIntervalSeconds int            `yaml:"poll_interval_seconds"`
	PollInterval        time.Duration  `yaml:"-"`
	Timezone            string         `yaml:"timezone"`
	Location            *time.Location `yaml:"-"`
}

// AuthConfig holds the shared dashboard password and the token signing secret.
type AuthConfig struct {
	Password      string `yaml:"password"`
	SigningSecret string `yaml:"signing_secret"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// BusConfig points at an optional NATS server that receives dock events.
type BusConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
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
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Monitor.PollIntervalSeconds <= 0 {
		cfg.Monitor.PollIntervalSeconds = 5
	}
	cfg.Monitor.PollInterval = time.Duration(cfg.Monitor.PollIntervalSeconds) * time.Second

	if cfg.Monitor.Timezone == "" {
		cfg.Monitor.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Monitor.Timezone)
	if err != nil {
		return err
	}
	cfg.Monitor.Location = loc

	if pw := os.Getenv(EnvAuthPassword); pw != "" {
		cfg.Auth.Password = pw
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}

	if cfg.Bus.SubjectPrefix == "" {
		cfg.Bus.SubjectPrefix = "firext.docks"
	}
	return nil
}
