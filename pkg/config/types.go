package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent engram configuration stored as config.toml
// in the .engram/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version       int                 `toml:"version"`
	Storage       StorageConfig       `toml:"storage"`
	API           APIConfig           `toml:"api"`
	Client        ClientConfig        `toml:"client"`
	Summarizer    SummarizerConfig    `toml:"summarizer"`
	Consolidation ConsolidationConfig `toml:"consolidation"`
	Mirror        MirrorConfig        `toml:"mirror"`
	Events        EventsConfig        `toml:"events"`
}

// StorageConfig holds record store settings.
type StorageConfig struct {
	// Driver selects the backend: "inmemory", "sqlite", or "postgres".
	Driver string `toml:"driver,omitempty"`

	// SQLitePath overrides the default .engram/engram.sqlite location.
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// PostgresDSN is the connection string for the postgres driver.
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to the running
// API server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// SummarizerConfig holds summarization collaborator settings.
type SummarizerConfig struct {
	// Provider is "anthropic", "openai", or "ollama". Empty disables
	// consolidation.
	Provider string `toml:"provider,omitempty"`

	// Model overrides the provider's default model.
	Model string `toml:"model,omitempty"`

	// APIKey is the explicit provider credential. Empty falls back to the
	// provider's environment variable (ANTHROPIC_API_KEY / OPENAI_API_KEY).
	APIKey string `toml:"api_key,omitempty"`

	// Target overrides the provider endpoint.
	Target string `toml:"target,omitempty"`
}

// ConsolidationConfig holds consolidation scheduling settings.
type ConsolidationConfig struct {
	// Enabled turns the scheduled consolidation loop on or off. Manual
	// triggers work either way.
	Enabled bool `toml:"enabled,omitempty"`

	// Schedule is a five-field cron expression.
	Schedule string `toml:"schedule,omitempty"`
}

// MirrorConfig holds S3 mirror settings.
type MirrorConfig struct {
	Enabled bool   `toml:"enabled,omitempty"`
	Bucket  string `toml:"bucket,omitempty"`
	Prefix  string `toml:"prefix,omitempty"`
	Region  string `toml:"region,omitempty"`
}

// EventsConfig holds eventstream publisher settings.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma-separated list of Kafka bootstrap addresses.
	Brokers string `toml:"brokers,omitempty"`

	// Topic is the destination topic.
	Topic string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error { c.Storage.Driver = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"summarizer.provider": {
		get: func(c *Config) string { return c.Summarizer.Provider },
		set: func(c *Config, v string) error { c.Summarizer.Provider = v; return nil },
	},
	"summarizer.model": {
		get: func(c *Config) string { return c.Summarizer.Model },
		set: func(c *Config, v string) error { c.Summarizer.Model = v; return nil },
	},
	"summarizer.api_key": {
		get: func(c *Config) string { return c.Summarizer.APIKey },
		set: func(c *Config, v string) error { c.Summarizer.APIKey = v; return nil },
	},
	"summarizer.target": {
		get: func(c *Config) string { return c.Summarizer.Target },
		set: func(c *Config, v string) error { c.Summarizer.Target = v; return nil },
	},
	"consolidation.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Consolidation.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for consolidation.enabled: %w", err)
			}
			c.Consolidation.Enabled = b
			return nil
		},
	},
	"consolidation.schedule": {
		get: func(c *Config) string { return c.Consolidation.Schedule },
		set: func(c *Config, v string) error { c.Consolidation.Schedule = v; return nil },
	},
	"mirror.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Mirror.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for mirror.enabled: %w", err)
			}
			c.Mirror.Enabled = b
			return nil
		},
	},
	"mirror.bucket": {
		get: func(c *Config) string { return c.Mirror.Bucket },
		set: func(c *Config, v string) error { c.Mirror.Bucket = v; return nil },
	},
	"mirror.prefix": {
		get: func(c *Config) string { return c.Mirror.Prefix },
		set: func(c *Config, v string) error { c.Mirror.Prefix = v; return nil },
	},
	"mirror.region": {
		get: func(c *Config) string { return c.Mirror.Region },
		set: func(c *Config, v string) error { c.Mirror.Region = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}
