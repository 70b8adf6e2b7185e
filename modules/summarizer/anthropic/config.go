package anthropic

import (
	"errors"
	"time"
)

// defaultModel is the model used when none is specified.
// Pinned to a dated release for reproducibility; update when a newer
// stable version is validated.
const defaultModel = "claude-sonnet-4-5-20250929"

// defaultTimeout bounds the whole summarization request.
const defaultTimeout = 60 * time.Second

// Config holds the YAML-decoded configuration for the Anthropic summarizer.
type Config struct {
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// defaults fills in zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// validate returns an error if required fields are missing.
func (c *Config) validate() error {
	if c.MaxTokens < 0 {
		return errors.New("summarizer.anthropic: max_tokens must not be negative")
	}
	return nil
}
