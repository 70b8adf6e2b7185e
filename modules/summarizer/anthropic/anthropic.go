// Package anthropic implements the compression summarizer against the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/keepsake-ai/keepsake/internal/compress"
)

// Client calls the Messages API to summarize session batches.
type Client struct {
	config Config
	client *sdkanthropic.Client
}

// Compile-time interface check.
var _ compress.Summarizer = (*Client)(nil)

// New creates a Client. The API key falls back to the ANTHROPIC_API_KEY
// environment variable when cfg.APIKey is empty.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		if envKey, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			apiKey = envKey
		}
	}

	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	// Failed cycles are retried on the next compression tick, so SDK-level
	// retries only delay the fail-closed path.
	opts = append(opts, option.WithMaxRetries(0))

	client := sdkanthropic.NewClient(opts...)
	return &Client{config: cfg, client: &client}, nil
}

// Summarize sends the transcript with the extraction instructions and returns
// the model's raw text output.
func (c *Client) Summarize(ctx context.Context, transcript, schemaInstructions string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		System: []sdkanthropic.TextBlockParam{
			{Text: schemaInstructions},
		},
		Messages: []sdkanthropic.MessageParam{
			sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(transcript)),
		},
	})
	if err != nil {
		return "", mapError(err)
	}

	var content string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			if content != "" {
				content += "\n"
			}
			content += v.Text
		}
	}
	if content == "" {
		return "", fmt.Errorf("%w: response has no text content", compress.ErrMalformedResponse)
	}

	return content, nil
}

// mapError converts an Anthropic SDK error into the appropriate compression
// sentinel error. Non-API errors are treated as reachability failures.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	// Surface context errors directly so callers see cancellation rather
	// than a provider failure.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *sdkanthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", compress.ErrProviderUnreachable, err)
	}

	switch apiErr.StatusCode {
	case http.StatusTooManyRequests, 529, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", compress.ErrProviderUnreachable, apiErr.Error())
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("summarizer.anthropic: auth error (HTTP %d): %w", apiErr.StatusCode, err)
	default:
		return fmt.Errorf("summarizer.anthropic: error (HTTP %d): %w", apiErr.StatusCode, err)
	}
}
