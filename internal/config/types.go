package config

import "time"

// Config represents the complete codex-bridge configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Cache   CacheConfig   `yaml:"cache"`
	Codex   CodexConfig   `yaml:"codex"`
	History HistoryConfig `yaml:"history"`
	API     APIConfig     `yaml:"api,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// CacheConfig defines result cache settings.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// CodexConfig defines how the external Codex CLI is invoked.
type CodexConfig struct {
	// Binary is the executable name or path of the Codex CLI.
	Binary string `yaml:"binary"`
	// DefaultTimeout bounds a single invocation's wall-clock time.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	// GracePeriod is the time between SIGTERM and SIGKILL on timeout.
	GracePeriod time.Duration `yaml:"grace_period"`
	// AllowWrite gates filesystem-mutating sandbox modes. Off by default.
	AllowWrite bool `yaml:"allow_write"`
}

// HistoryConfig defines invocation log storage settings.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "codex-bridge",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Cache: CacheConfig{
			TTL:        1 * time.Hour,
			MaxEntries: 100,
		},
		Codex: CodexConfig{
			Binary:         "codex",
			DefaultTimeout: 5 * time.Minute,
			GracePeriod:    5 * time.Second,
			AllowWrite:     false,
		},
		History: HistoryConfig{
			Path: "./data/history.db",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8080",
			Auth: APIAuthConfig{
				APIKey: "",
			},
		},
	}
}
