// Package config loads and validates tracker configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the metrics HTTP endpoint.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// ScraperConfig governs the headless browser sessions.
type ScraperConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	UserAgent        string `mapstructure:"user_agent"`
	NavTimeoutSec    int    `mapstructure:"nav_timeout_seconds"`
	SettleDelaySec   int    `mapstructure:"settle_delay_seconds"`
	RefresherEnabled bool   `mapstructure:"daily_refresh"`
}

// WorkerConfig governs the queue polling loop.
type WorkerConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("scraper.base_url", "https://www.amazon.com")
	v.SetDefault("scraper.nav_timeout_seconds", 90)
	v.SetDefault("scraper.settle_delay_seconds", 10)
	v.SetDefault("scraper.daily_refresh", true)
	v.SetDefault("worker.poll_interval_seconds", 10)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper.base_url must be set")
	}
	if c.Scraper.NavTimeoutSec <= 0 {
		return fmt.Errorf("scraper.nav_timeout_seconds must be > 0")
	}
	if c.Worker.PollIntervalSec <= 0 {
		return fmt.Errorf("worker.poll_interval_seconds must be > 0")
	}
	return nil
}

// NavTimeout returns the navigation deadline for one page load.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Scraper.NavTimeoutSec) * time.Second
}

// SettleDelay returns how long to wait for lazy-loaded content.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Scraper.SettleDelaySec) * time.Second
}

// PollInterval returns the queue polling cadence.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Worker.PollIntervalSec) * time.Second
}
