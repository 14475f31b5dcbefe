package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding file configuration. The encryption
// secret is only ever supplied through the environment or the file; it is
// never defaulted.
const (
	EnvEncryptionSecret = "CONNECTOR_ENCRYPTION_SECRET"
	EnvNATSURL          = "CONNECTOR_NATS_URL"
	EnvListenAddr       = "CONNECTOR_LISTEN_ADDR"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Security SecurityConfig `yaml:"security"`
	Store    StoreConfig    `yaml:"store"`
	NATS     NATSConfig     `yaml:"nats"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type ProviderConfig struct {
	BaseURL        string        `yaml:"base_url"`
	StudioBaseURL  string        `yaml:"studio_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// ShowBindings maps an event type id to the provider show the sessions
	// of that event type are created under.
	ShowBindings map[int64]string `yaml:"show_bindings"`
}

type SecurityConfig struct {
	EncryptionSecret string `yaml:"encryption_secret"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type MonitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvEncryptionSecret); v != "" {
		c.Security.EncryptionSecret = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.Server.ListenAddr = v
	}
}

func (c *Config) validate() error {
	// Stored API keys are unreadable without the secret, so a missing
	// secret is a startup failure, never an implicit empty key.
	if c.Security.EncryptionSecret == "" {
		return fmt.Errorf("encryption secret is required (set security.encryption_secret or %s)", EnvEncryptionSecret)
	}

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}

	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://api.riverside.fm"
	}
	if c.Provider.StudioBaseURL == "" {
		c.Provider.StudioBaseURL = "https://riverside.fm"
	}
	if c.Provider.RequestTimeout == 0 {
		c.Provider.RequestTimeout = 30 * time.Second
	}

	switch c.Store.Backend {
	case "":
		c.Store.Backend = "memory"
	case "memory":
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the file backend")
		}
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store.Backend)
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return fmt.Errorf("NATS URL is required when NATS is enabled")
		}
		if c.NATS.Subject == "" {
			c.NATS.Subject = "meetings.lifecycle"
		}
	}

	if c.Monitor.Enabled && c.Monitor.Interval == 0 {
		c.Monitor.Interval = 6 * time.Hour
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	return nil
}
