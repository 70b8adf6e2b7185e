// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for keepsake.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Storage    StorageConfig    `yaml:"storage"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Memory     MemoryConfig     `yaml:"memory,omitempty"`
	Safeguard  SafeguardConfig  `yaml:"safeguard,omitempty"`
	Gateway    GatewayConfig    `yaml:"gateway,omitempty"`
	Scheduler  SchedulerConfig  `yaml:"scheduler,omitempty"`
}

// StorageConfig configures the durable store.
type StorageConfig struct {
	// Path is the SQLite database file location.
	Path string `yaml:"path"`

	// WAL enables write-ahead logging. Defaults to true.
	WAL *bool `yaml:"wal,omitempty"`

	// BusyTimeout is how long a write waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout,omitempty"`
}

// SummarizerConfig selects the provider used for compression.
type SummarizerConfig struct {
	// Type is "openai" or "anthropic".
	Type string `yaml:"type"`

	OpenAI    *OpenAIConfig    `yaml:"openai,omitempty"`
	Anthropic *AnthropicConfig `yaml:"anthropic,omitempty"`
}

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// AnthropicConfig configures the Anthropic Messages API.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// MemoryConfig tunes tier retention. Zero values mean built-in defaults.
type MemoryConfig struct {
	// MaxMessages caps the active session; older messages are evicted first.
	MaxMessages int `yaml:"max_messages,omitempty"`

	// MaxWeeks caps mid-term retention of weekly summaries.
	MaxWeeks int `yaml:"max_weeks,omitempty"`
}

// SafeguardConfig extends the built-in crisis phrase set.
type SafeguardConfig struct {
	// Phrases are additional operator-configured phrases to screen for.
	Phrases []string `yaml:"phrases,omitempty"`
}

// GatewayConfig configures the HTTP API surface.
type GatewayConfig struct {
	// Bind is the listen address, e.g. "127.0.0.1:8440".
	Bind string `yaml:"bind,omitempty"`

	// Token is the bearer token required on /api routes. Empty disables auth.
	Token string `yaml:"token,omitempty"`

	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// SchedulerConfig configures the background compression job.
type SchedulerConfig struct {
	// Enabled turns the cron scheduler on. Compression can always be
	// triggered through the API regardless.
	Enabled bool `yaml:"enabled,omitempty"`

	// CompressSchedule is a cron expression. Defaults to "0 3 * * *"
	// (daily at 03:00).
	CompressSchedule string `yaml:"compress_schedule,omitempty"`
}
