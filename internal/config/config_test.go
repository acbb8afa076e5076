package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Monitor: MonitorConfig{
			URLs:       []string{"https://shop.example.com"},
			Phrases:    []string{"DJI Mini 5 Pro"},
			Interval:   5 * time.Minute,
			MaxWorkers: 4,
		},
		HTTP: HTTPConfig{Timeout: 60 * time.Second, MaxRetries: 3},
		Pushover: PushoverConfig{
			Token: "app-token",
			User:  "user-key",
		},
		Server: ServerConfig{Enabled: true, Port: 8080},
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
monitor:
  urls:
    - https://shop.example.com/drones
    - https://other.example.com
  phrases:
    - DJI Mini 5 Pro
    - RTX 4090
  interval: 30s
  auto_stop: false
pushover:
  token: app-token
  user: user-key
  title: Stock Alert
server:
  port: 9090
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://shop.example.com/drones", "https://other.example.com"}, cfg.Monitor.URLs)
	assert.Equal(t, []string{"DJI Mini 5 Pro", "RTX 4090"}, cfg.Monitor.Phrases)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.False(t, cfg.Monitor.AutoStop)
	assert.Equal(t, "Stock Alert", cfg.Pushover.Title)
	assert.Equal(t, 9090, cfg.Server.Port)

	// defaults fill the rest
	assert.Equal(t, 4, cfg.Monitor.MaxWorkers)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.Equal(t, 1, cfg.Pushover.Priority)
	assert.Equal(t, "magic", cfg.Pushover.Sound)
	assert.True(t, cfg.Server.Enabled)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no urls",
			mutate:  func(c *Config) { c.Monitor.URLs = nil },
			wantErr: "monitor.urls",
		},
		{
			name: "too many urls",
			mutate: func(c *Config) {
				for i := 0; i <= MaxURLs; i++ {
					c.Monitor.URLs = append(c.Monitor.URLs, "https://example.com")
				}
			},
			wantErr: "at most",
		},
		{
			name:    "private url",
			mutate:  func(c *Config) { c.Monitor.URLs = []string{"http://192.168.1.1"} },
			wantErr: "private",
		},
		{
			name:    "bad scheme",
			mutate:  func(c *Config) { c.Monitor.URLs = []string{"ftp://example.com"} },
			wantErr: "scheme",
		},
		{
			name:    "no phrases",
			mutate:  func(c *Config) { c.Monitor.Phrases = nil },
			wantErr: "monitor.phrases",
		},
		{
			name: "too many phrases",
			mutate: func(c *Config) {
				for i := 0; i <= MaxPhrases; i++ {
					c.Monitor.Phrases = append(c.Monitor.Phrases, "phrase")
				}
			},
			wantErr: "at most",
		},
		{
			name:    "phrase normalizes to empty",
			mutate:  func(c *Config) { c.Monitor.Phrases = []string{"--- !!!"} },
			wantErr: "normalizes to an empty string",
		},
		{
			name:    "interval too short",
			mutate:  func(c *Config) { c.Monitor.Interval = time.Second },
			wantErr: "at least 10s",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Monitor.MaxWorkers = 0 },
			wantErr: "max_workers",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.HTTP.Timeout = 0 },
			wantErr: "http.timeout",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Pushover.Token = "" },
			wantErr: "pushover.token",
		},
		{
			name:    "missing user",
			mutate:  func(c *Config) { c.Pushover.User = "" },
			wantErr: "pushover.user",
		},
		{
			name: "bad server port",
			mutate: func(c *Config) {
				c.Server.Enabled = true
				c.Server.Port = 0
			},
			wantErr: "server.port",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.wantErr),
				"error %q should mention %q", err, tc.wantErr)
		})
	}

	t.Run("server disabled ignores port", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Server.Enabled = false
		cfg.Server.Port = 0
		assert.NoError(t, cfg.Validate())
	})
}
