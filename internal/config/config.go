package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Client    ClientConfig    `yaml:"client"`
	Trainer   TrainerConfig   `yaml:"trainer"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig selects the backing store. Driver "postgres" uses the
// connection fields; driver "sqlite" uses Path.
type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	Path       string `yaml:"path"`
	Migrations string `yaml:"migrations"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// ClientConfig is used by binaries that talk to a running setlog server.
type ClientConfig struct {
	ServerURL string        `yaml:"server_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
}

// TrainerConfig identifies the trainer operating the console.
type TrainerConfig struct {
	ID                 string `yaml:"id"`
	Name               string `yaml:"name"`
	RestDefaultSeconds int    `yaml:"rest_default_seconds"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, applies defaults, then environment
// variable overrides. Env vars use the prefix SETLOG_:
//
//	SETLOG_SERVER_HOST, SETLOG_SERVER_PORT,
//	SETLOG_DB_DRIVER, SETLOG_DB_HOST, SETLOG_DB_PORT, SETLOG_DB_NAME,
//	SETLOG_DB_USER, SETLOG_DB_PASSWORD, SETLOG_DB_SSLMODE, SETLOG_DB_PATH,
//	SETLOG_AUTH_API_KEY, SETLOG_TAILSCALE_ENABLED,
//	SETLOG_CLIENT_SERVER_URL, SETLOG_TRAINER_NAME
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.Migrations == "" {
		cfg.Database.Migrations = "migrations"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "setlog"
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 10 * time.Second
	}
	if cfg.Client.Retries == 0 {
		cfg.Client.Retries = 3
	}
	if cfg.Trainer.RestDefaultSeconds == 0 {
		cfg.Trainer.RestDefaultSeconds = 90
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SETLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SETLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SETLOG_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SETLOG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SETLOG_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SETLOG_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("SETLOG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SETLOG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SETLOG_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("SETLOG_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SETLOG_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("SETLOG_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("SETLOG_CLIENT_SERVER_URL"); v != "" {
		cfg.Client.ServerURL = v
	}
	if v := os.Getenv("SETLOG_TRAINER_NAME"); v != "" {
		cfg.Trainer.Name = v
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Client.Retries < 1 {
		return fmt.Errorf("client.retries must be >= 1")
	}
	if c.Trainer.RestDefaultSeconds < 1 {
		return fmt.Errorf("trainer.rest_default_seconds must be >= 1")
	}
	return nil
}

// CheckDatabase verifies the fields needed to open the configured driver.
func (c *Config) CheckDatabase() error {
	if c.Database.Driver == DriverSQLite {
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
		return nil
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	return nil
}

// CheckServer verifies the fields the API server needs.
func (c *Config) CheckServer() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	return c.CheckDatabase()
}

// CheckClient verifies the fields needed to reach a running server.
func (c *Config) CheckClient() error {
	if c.Client.ServerURL == "" {
		return fmt.Errorf("client.server_url is required")
	}
	return nil
}
