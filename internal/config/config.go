package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/account"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/client"
	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned by RequireAuth when no login is configured.
var ErrMissingCredentials = errors.New("auth.username and auth.password must be set")

// Config holds all aussiebb configuration.
type Config struct {
	Auth    AuthConfig    `mapstructure:"auth"`
	API     APIConfig     `mapstructure:"api"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Quota   QuotaConfig   `mapstructure:"quota"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AuthConfig holds the MyAussie login.
type AuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// APIConfig defines upstream endpoints.
type APIConfig struct {
	AuthURL string        `mapstructure:"auth_url"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig defines how long fetched data is reused.
type CacheConfig struct {
	Refresh time.Duration `mapstructure:"refresh"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines HTTP API settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// QuotaConfig defines data quota alerting.
type QuotaConfig struct {
	AlertThresholdPct float64 `mapstructure:"alert_threshold_pct"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RequireAuth reports whether credentials are present.
func (c *Config) RequireAuth() error {
	if c.Auth.Username == "" || c.Auth.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".abb"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("api.auth_url", client.DefaultAuthURL)
	v.SetDefault("api.base_url", client.DefaultAPIURL)
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("cache.refresh", account.DefaultRefresh.String())
	v.SetDefault("storage.path", filepath.Join(home, ".abb", "usage.db"))
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("quota.alert_threshold_pct", 80.0)
	v.SetDefault("alerts.slack.channel", "#nbn-usage")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("ABB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Quota.AlertThresholdPct <= 0 || cfg.Quota.AlertThresholdPct > 100 {
		return nil, fmt.Errorf("quota.alert_threshold_pct must be in (0, 100], got %v", cfg.Quota.AlertThresholdPct)
	}

	return &cfg, nil
}
