// Package config loads and validates watch configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/sitewatch/internal/fetcher/httpfetch"
	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// Hard limits on the watch set, to keep rounds bounded.
const (
	MaxURLs    = 10
	MaxPhrases = 20
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Pushover PushoverConfig `mapstructure:"pushover"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// MonitorConfig defines the watch set and round pacing.
type MonitorConfig struct {
	URLs       []string      `mapstructure:"urls"`
	Phrases    []string      `mapstructure:"phrases"`
	Interval   time.Duration `mapstructure:"interval"`
	AutoStop   bool          `mapstructure:"auto_stop"`
	MaxWorkers int           `mapstructure:"max_workers"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	Timeout    time.Duration     `mapstructure:"timeout"`
	MaxRetries int               `mapstructure:"max_retries"`
	UserAgent  string            `mapstructure:"user_agent"`
	Headers    map[string]string `mapstructure:"headers"`
}

// LimitsConfig bounds page processing cost.
type LimitsConfig struct {
	MaxContentBytes   int `mapstructure:"max_content_bytes"`
	MaxExtractedChars int `mapstructure:"max_extracted_chars"`
}

// PushoverConfig holds notification credentials and presentation. Title,
// when set, overrides the per-find "Found: <phrase>" notification title.
type PushoverConfig struct {
	Token    string `mapstructure:"token"`
	User     string `mapstructure:"user"`
	Title    string `mapstructure:"title"`
	Priority int    `mapstructure:"priority"`
	Sound    string `mapstructure:"sound"`
}

// ServerConfig controls the status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEWATCH")
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
	v.SetDefault("monitor.interval", "5m")
	v.SetDefault("monitor.auto_stop", true)
	v.SetDefault("monitor.max_workers", 4)
	v.SetDefault("http.timeout", "60s")
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("limits.max_content_bytes", monitor.DefaultMaxContentBytes)
	v.SetDefault("limits.max_extracted_chars", monitor.DefaultMaxExtractedChars)
	v.SetDefault("pushover.priority", 1)
	v.SetDefault("pushover.sound", "magic")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits. All violations
// here are fatal at startup; nothing is retried.
func (c Config) Validate() error {
	if len(c.Monitor.URLs) == 0 {
		return fmt.Errorf("monitor.urls must list at least one URL")
	}
	if len(c.Monitor.URLs) > MaxURLs {
		return fmt.Errorf("monitor.urls supports at most %d URLs", MaxURLs)
	}
	for _, u := range c.Monitor.URLs {
		if err := httpfetch.ValidateURL(u); err != nil {
			return fmt.Errorf("monitor.urls entry %q: %w", u, err)
		}
	}
	if len(c.Monitor.Phrases) == 0 {
		return fmt.Errorf("monitor.phrases must list at least one phrase")
	}
	if len(c.Monitor.Phrases) > MaxPhrases {
		return fmt.Errorf("monitor.phrases supports at most %d phrases", MaxPhrases)
	}
	for _, phrase := range c.Monitor.Phrases {
		if monitor.Normalize(phrase) == "" {
			return fmt.Errorf("monitor.phrases entry %q normalizes to an empty string", phrase)
		}
	}
	if c.Monitor.Interval < 10*time.Second {
		return fmt.Errorf("monitor.interval must be at least 10s")
	}
	if c.Monitor.MaxWorkers <= 0 {
		return fmt.Errorf("monitor.max_workers must be > 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Pushover.Token == "" {
		return fmt.Errorf("pushover.token is required")
	}
	if c.Pushover.User == "" {
		return fmt.Errorf("pushover.user is required")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}
