// Package compress drains queued sessions through a summarization provider
// and merges the structured result into the Mid-Term and Long-Term tiers.
package compress

import (
	"context"
	"errors"
)

// Sentinel errors for compression cycles. Both leave the pending queue and
// all tiers untouched; the caller may retry.
var (
	// ErrProviderUnreachable indicates the summarization provider could not
	// be reached or returned a transport-level failure.
	ErrProviderUnreachable = errors.New("compress: summarization provider unreachable")

	// ErrMalformedResponse indicates the provider responded but no valid
	// JSON object matching the schema could be extracted.
	ErrMalformedResponse = errors.New("compress: malformed provider response")
)

// Summarizer turns a transcript into raw text expected to contain one JSON
// object matching the schema instructions. Implementations wrap a concrete
// provider (remote API today, on-device model later) and must be swappable
// without touching merge logic.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, schemaInstructions string) (string, error)
}
