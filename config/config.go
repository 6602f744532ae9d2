package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the client configuration. Resolution order is flags
// over environment over file over defaults; the CLI applies the flag
// layer, this package the rest.
type Config struct {
	// Credentials
	ClientID     string
	ClientSecret string

	// Service
	BaseURL string
	QueueID string

	// Polling
	PollInterval time.Duration
	MaxWait      time.Duration

	// Local run history (empty disables it)
	HistoryDB string

	// Artifact archiving (empty bucket disables it)
	ArchiveBucket string
	ArchivePrefix string
}

// fileConfig is the YAML schema. Durations are strings ("30s", "5m")
// since yaml.v3 has no native duration support.
type fileConfig struct {
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	BaseURL       string `yaml:"base_url"`
	QueueID       string `yaml:"queue_id"`
	PollInterval  string `yaml:"poll_interval"`
	MaxWait       string `yaml:"max_wait"`
	HistoryDB     string `yaml:"history_db"`
	ArchiveBucket string `yaml:"archive_bucket"`
	ArchivePrefix string `yaml:"archive_prefix"`
}

func defaults() *Config {
	return &Config{
		BaseURL:       "https://developer.api.autodesk.com",
		QueueID:       "@default",
		PollInterval:  5 * time.Second,
		HistoryDB:     defaultHistoryPath(),
		ArchivePrefix: "flow-artifacts",
	}
}

// applyEnv overlays any set environment variables
func (c *Config) applyEnv() {
	c.ClientID = getEnv("FLOW_CLIENT_ID", c.ClientID)
	c.ClientSecret = getEnv("FLOW_CLIENT_SECRET", c.ClientSecret)
	c.BaseURL = getEnv("FLOW_BASE_URL", c.BaseURL)
	c.QueueID = getEnv("FLOW_QUEUE_ID", c.QueueID)
	c.PollInterval = getEnvDuration("FLOW_POLL_INTERVAL", c.PollInterval)
	c.MaxWait = getEnvDuration("FLOW_MAX_WAIT", c.MaxWait)
	c.HistoryDB = getEnv("FLOW_HISTORY_DB", c.HistoryDB)
	c.ArchiveBucket = getEnv("FLOW_ARCHIVE_BUCKET", c.ArchiveBucket)
	c.ArchivePrefix = getEnv("FLOW_ARCHIVE_PREFIX", c.ArchivePrefix)
}

// Load loads configuration from environment variables over defaults
func Load() *Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile loads configuration from a YAML file, with environment
// variables still taking precedence over file values
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.applyFile(fc); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyFile overlays the non-empty fields of a parsed config file
func (c *Config) applyFile(fc fileConfig) error {
	setString(&c.ClientID, fc.ClientID)
	setString(&c.ClientSecret, fc.ClientSecret)
	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.QueueID, fc.QueueID)
	setString(&c.HistoryDB, fc.HistoryDB)
	setString(&c.ArchiveBucket, fc.ArchiveBucket)
	setString(&c.ArchivePrefix, fc.ArchivePrefix)

	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	if fc.MaxWait != "" {
		d, err := time.ParseDuration(fc.MaxWait)
		if err != nil {
			return fmt.Errorf("invalid max_wait: %w", err)
		}
		c.MaxWait = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flowctl", "history.db")
}
