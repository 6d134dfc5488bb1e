package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file, applies defaults,
// environment overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		// Directory provided - look for config.yaml inside
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Apply environment variable interpolation before parsing
	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configPath if given, otherwise discovers a config file
// or falls back to defaults plus environment overrides.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DiscoverConfigPath()
	}
	if configPath == "" {
		cfg := Defaults()
		applyEnvOverrides(cfg)
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return Load(configPath)
}

// DiscoverConfigPath finds a config file by checking standard locations.
// Priority order: $CODEX_BRIDGE_CONFIG, ~/.config/codex-bridge/config.yaml, ./config.yaml
func DiscoverConfigPath() string {
	if path := os.Getenv("CODEX_BRIDGE_CONFIG"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "codex-bridge", "config.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig
		}
	}

	if _, err := os.Stat("./config.yaml"); err == nil {
		return "./config.yaml"
	}

	return ""
}

// applyDefaults merges default values into config where not explicitly set.
func applyDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = defaults.Cache.TTL
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = defaults.Cache.MaxEntries
	}

	if cfg.Codex.Binary == "" {
		cfg.Codex.Binary = defaults.Codex.Binary
	}
	if cfg.Codex.DefaultTimeout == 0 {
		cfg.Codex.DefaultTimeout = defaults.Codex.DefaultTimeout
	}
	if cfg.Codex.GracePeriod == 0 {
		cfg.Codex.GracePeriod = defaults.Codex.GracePeriod
	}

	if cfg.History.Path == "" {
		cfg.History.Path = defaults.History.Path
	}

	if !cfg.API.Enabled && cfg.API.Listen == "" {
		cfg.API = defaults.API
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
}

// applyEnvOverrides applies the environment knobs honoured by the bridge.
// CACHE_TTL (seconds) and MAX_CACHE_SIZE size the result cache;
// CODEX_ALLOW_WRITE gates filesystem-mutating sandbox modes.
func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("CACHE_TTL"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			cfg.Cache.TTL = time.Duration(secs) * time.Second
		}
	}
	if raw := os.Getenv("MAX_CACHE_SIZE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.Cache.MaxEntries = n
		}
	}
	if raw := os.Getenv("CODEX_ALLOW_WRITE"); raw != "" {
		cfg.Codex.AllowWrite = strings.EqualFold(raw, "true")
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation if required)
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if cfg.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive")
	}

	if cfg.Codex.Binary == "" {
		return fmt.Errorf("codex.binary is required")
	}
	if cfg.Codex.DefaultTimeout <= 0 {
		return fmt.Errorf("codex.default_timeout must be positive")
	}
	if cfg.Codex.GracePeriod <= 0 {
		return fmt.Errorf("codex.grace_period must be positive")
	}

	if cfg.History.Path == "" {
		return fmt.Errorf("history.path is required")
	}

	if cfg.API.Enabled {
		if envVarPattern.MatchString(cfg.API.Auth.APIKey) {
			matches := envVarPattern.FindStringSubmatch(cfg.API.Auth.APIKey)
			if len(matches) > 1 {
				return fmt.Errorf("api.auth.api_key: environment variable ${%s} is not set", matches[1])
			}
			return fmt.Errorf("api.auth.api_key: unresolved environment variable")
		}
		if cfg.API.Auth.APIKey == "" {
			return fmt.Errorf("api.auth.api_key is required when the API is enabled")
		}
	}

	return nil
}
