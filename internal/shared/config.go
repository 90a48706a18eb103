package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Remote   RemoteConfig   `toml:"remote"`
	Realtime RealtimeConfig `toml:"realtime"`
	Storage  StorageConfig  `toml:"storage"`
	Sync     SyncConfig     `toml:"sync"`
	Server   ServerConfig   `toml:"server"`
}

// RemoteConfig contains remote progress store settings.
type RemoteConfig struct {
	BaseURL        string `toml:"base_url"`
	TokenURL       string `toml:"token_url"`
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// RealtimeConfig contains websocket channel settings.
type RealtimeConfig struct {
	URL string `toml:"url"`
}

// StorageConfig contains local persistence settings.
//
// Backend selects the adapter: "file" stores one JSON document per
// namespace under Dir, "sqlite" uses an embedded key-value table at Path.
type StorageConfig struct {
	Backend      string `toml:"backend"`
	Dir          string `toml:"dir"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains the sync engine tunables.
//
// The defaults (30s auto-save, 3 retries, 100 entries, 2s retry delay)
// mirror the production values; they are configuration rather than
// constants so tests and constrained deployments can tighten them.
type SyncConfig struct {
	AutoSaveIntervalSeconds int     `toml:"auto_save_interval_seconds"`
	MaxRetries              int     `toml:"max_retries"`
	MaxQueueSize            int     `toml:"max_queue_size"`
	RetryDelaySeconds       int     `toml:"retry_delay_seconds"`
	SettleDelaySeconds      int     `toml:"settle_delay_seconds"`
	RetentionDays           int     `toml:"retention_days"`
	DrainRateLimit          float64 `toml:"drain_rate_limit"`
}

// ServerConfig contains dev sync server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AutoSaveInterval returns the auto-save flush interval as a [time.Duration].
func (s SyncConfig) AutoSaveInterval() time.Duration {
	return time.Duration(s.AutoSaveIntervalSeconds) * time.Second
}

// RetryDelay returns the queue retry delay as a [time.Duration].
func (s SyncConfig) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelaySeconds) * time.Second
}

// SettleDelay returns the online-transition settle delay as a [time.Duration].
func (s SyncConfig) SettleDelay() time.Duration {
	return time.Duration(s.SettleDelaySeconds) * time.Second
}

// Retention returns the queued-mutation retention window as a [time.Duration].
func (s SyncConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
