// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the engine configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	API     APIConfig
	Sync    SyncConfig
	Network NetworkConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds local record store configuration.
type StorageConfig struct {
	// DBPath is the SQLite database file location.
	DBPath string
}

// APIConfig holds remote joke/feedback service configuration.
type APIConfig struct {
	// BaseURL of the joke service, e.g. https://api.giggleglide.app
	BaseURL string
	// FetchTimeout bounds a single next-joke network fetch (default: 3s).
	// Kept short so the cache fallback stays responsive.
	FetchTimeout time.Duration
	// SubmitTimeout bounds a single feedback delivery during a drain (default: 10s).
	SubmitTimeout time.Duration
	// RequestsPerSecond limits outbound API calls (default: 5).
	RequestsPerSecond float64
	// Burst is the rate limiter burst size (default: 10).
	Burst int
}

// SyncConfig holds sync queue and scheduler configuration.
type SyncConfig struct {
	// MaxAttempts before a queue entry is marked failed (default: 5).
	MaxAttempts int
	// Interval is the background sync cron spec (default: "@every 5m").
	Interval string
}

// NetworkConfig holds connectivity probe configuration.
type NetworkConfig struct {
	// ProbeURL is the internet reachability check endpoint
	// (default: https://clients3.google.com/generate_204).
	ProbeURL string
	// ProbeTimeout bounds a single reachability probe (default: 2s).
	ProbeTimeout time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dbPath := flag.String("db-path", "", "Path to the engine SQLite database")
	apiBaseURL := flag.String("api-base-url", "", "Base URL of the joke service")
	fetchTimeout := flag.String("fetch-timeout", "", "Next-joke fetch timeout (default: 3s)")
	submitTimeout := flag.String("submit-timeout", "", "Feedback delivery timeout (default: 10s)")
	maxAttempts := flag.String("max-sync-attempts", "", "Delivery attempts before an entry is marked failed (default: 5)")
	syncInterval := flag.String("sync-interval", "", "Background sync schedule (default: @every 5m)")
	probeURL := flag.String("probe-url", "", "Internet reachability probe URL")
	probeTimeout := flag.String("probe-timeout", "", "Reachability probe timeout (default: 2s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DBPath: getConfigValue(*dbPath, "DB_PATH", ""),
		},
		API: APIConfig{
			BaseURL:           getConfigValue(*apiBaseURL, "API_BASE_URL", "https://api.giggleglide.app"),
			RequestsPerSecond: getFloatConfigValue("", "API_RPS", 5),
			Burst:             getIntConfigValue("", "API_BURST", 10),
		},
		Sync: SyncConfig{
			MaxAttempts: getIntConfigValue(*maxAttempts, "MAX_SYNC_ATTEMPTS", 5),
			Interval:    getConfigValue(*syncInterval, "SYNC_INTERVAL", "@every 5m"),
		},
		Network: NetworkConfig{
			ProbeURL: getConfigValue(*probeURL, "PROBE_URL", "https://clients3.google.com/generate_204"),
		},
	}

	// Parse durations.
	var err error
	cfg.API.FetchTimeout, err = parseDurationValue(*fetchTimeout, "FETCH_TIMEOUT", "3s")
	if err != nil {
		return nil, err
	}
	cfg.API.SubmitTimeout, err = parseDurationValue(*submitTimeout, "SUBMIT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.Network.ProbeTimeout, err = parseDurationValue(*probeTimeout, "PROBE_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}

	// Expand and default the database path.
	if err := cfg.expandDBPath(); err != nil {
		return nil, fmt.Errorf("invalid db path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DBPath == "" {
		return errors.New("db path cannot be empty after expansion")
	}

	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("invalid API base URL %q: %w", c.API.BaseURL, err)
	}

	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("max sync attempts must be at least 1, got %d", c.Sync.MaxAttempts)
	}

	return nil
}

// expandDBPath expands ~ and makes the path absolute.
// Defaults to ~/GiggleGlide/engine.db if not specified.
func (c *Config) expandDBPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "GiggleGlide", "engine.db")

	expanded, err := expandPath(c.Storage.DBPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DBPath = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	str := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), str, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
