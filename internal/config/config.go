package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the application configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		// Driver selects the store implementation: "postgres" or "memory".
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Realtime struct {
		// SettleDelay is waited after a change event before refetching.
		SettleDelay time.Duration `yaml:"settle_delay" env:"REALTIME_SETTLE_DELAY"`
		// PollInterval is used when the change feed cannot be subscribed.
		PollInterval  time.Duration `yaml:"poll_interval" env:"REALTIME_POLL_INTERVAL"`
		ListenChannel string        `yaml:"listen_channel" env:"REALTIME_LISTEN_CHANNEL"`
	} `yaml:"realtime"`

	Audit struct {
		QueueSize    int           `yaml:"queue_size" env:"AUDIT_QUEUE_SIZE"`
		WriteTimeout time.Duration `yaml:"write_timeout" env:"AUDIT_WRITE_TIMEOUT"`
	} `yaml:"audit"`

	Sentry struct {
		DSN         string `yaml:"dsn" env:"SENTRY_DSN"`
		Environment string `yaml:"environment" env:"SENTRY_ENVIRONMENT"`
		Release     string `yaml:"release" env:"SENTRY_RELEASE"`
	} `yaml:"sentry"`

	Seed struct {
		// Demo inserts sample writers on an empty store.
		Demo bool `yaml:"demo" env:"SEED_DEMO"`
	} `yaml:"seed"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig reads configPath if it exists, then a .env file if present, then
// environment variables, and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	file, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := processStructFields(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Server.Port = "8080"
	cfg.Server.Mode = "development"

	cfg.Database.Driver = DriverPostgres
	cfg.Database.Host = "localhost"
	cfg.Database.Port = "5432"
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.DBName = "scribelink"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxIdleConns = 5
	cfg.Database.MaxOpenConns = 20
	cfg.Database.ConnMaxLifetime = "1h"

	cfg.JWT.AccessTokenExpiration = "24h"
	cfg.JWT.Issuer = "scribelink.app"

	cfg.Realtime.SettleDelay = 100 * time.Millisecond
	cfg.Realtime.PollInterval = 30 * time.Second
	cfg.Realtime.ListenChannel = "match_request_changes"

	cfg.Audit.QueueSize = 256
	cfg.Audit.WriteTimeout = 5 * time.Second

	cfg.Sentry.Environment = "development"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
}

func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.Host == "" {
			return errors.New("database host is required")
		}
		if _, err := time.ParseDuration(cfg.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("invalid database conn_max_lifetime: %w", err)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.JWT.Secret == "" {
		return errors.New("JWT secret is required")
	}
	if _, err := time.ParseDuration(cfg.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if cfg.Realtime.SettleDelay < 0 {
		return errors.New("realtime settle_delay must not be negative")
	}
	if cfg.Realtime.PollInterval <= 0 {
		return errors.New("realtime poll_interval must be positive")
	}
	if cfg.Audit.QueueSize <= 0 {
		return errors.New("audit queue_size must be positive")
	}
	return nil
}

// GetPostgresConnectionString returns the pgx connection URL.
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production"
}
