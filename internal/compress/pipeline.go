package compress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/keepsake-ai/keepsake/internal/memory"
)

// schemaInstructions is sent alongside the transcript on every cycle. The
// contract is a JSON schema, not free text: the parser extracts the first
// balanced {...} block from the response and fails closed otherwise.
const schemaInstructions = `Summarize the conversation sessions below into exactly one JSON object with this shape, and nothing else:
{
  "weekly": {
    "summary": "2-3 sentence overview of the period",
    "themes": ["up to 5 recurring themes"],
    "emotionalPattern": "one sentence on the overall emotional trajectory",
    "notableMoments": ["up to 3 moments worth remembering"],
    "flags": ["up to 3 concerns to keep an eye on, empty if none"]
  },
  "longTerm": {
    "relationships": [{"name": "", "relationship": "", "sentiment": "", "notes": ""}],
    "lifeEvents": ["significant life events mentioned"],
    "triggers": ["things that caused distress"],
    "calmingFactors": ["things that helped"]
  }
}
Only include entries that are clearly supported by the transcript. Use empty arrays when nothing qualifies.`

// extraction mirrors the provider's required JSON shape.
type extraction struct {
	Weekly struct {
		Summary          string   `json:"summary"`
		Themes           []string `json:"themes"`
		EmotionalPattern string   `json:"emotionalPattern"`
		NotableMoments   []string `json:"notableMoments"`
		Flags            []string `json:"flags"`
	} `json:"weekly"`
	LongTerm struct {
		Relationships  []memory.Relationship `json:"relationships"`
		LifeEvents     []string              `json:"lifeEvents"`
		Triggers       []string              `json:"triggers"`
		CalmingFactors []string              `json:"calmingFactors"`
	} `json:"longTerm"`
}

// Result reports the outcome of one compression cycle.
type Result struct {
	// NoOp is true when the pending queue was empty.
	NoOp bool

	// Sessions is the number of sessions compressed.
	Sessions int

	// WeekID is the Mid-Term week the batch folded into.
	WeekID string
}

// Pipeline converts accumulated Short-Term sessions into compact Mid/Long-Term
// knowledge. It never loses source data on failure: the queue is cleared only
// after every write succeeded.
type Pipeline struct {
	tiers      *memory.TierManager
	summarizer Summarizer
	logger     *slog.Logger
}

// PipelineOption configures optional Pipeline behavior.
type PipelineOption func(*Pipeline)

// WithLogger injects a structured logger. When omitted, logging is discarded.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a compression pipeline over the given tier manager.
func NewPipeline(tiers *memory.TierManager, summarizer Summarizer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{tiers: tiers, summarizer: summarizer}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Compress drains the pending queue through the summarization provider and
// merges the result into the Mid-Term and Long-Term tiers.
//
// The cycle is fail-closed and safe to re-invoke: no tier is written before
// the provider response has been fully parsed and the complete target state
// computed, and the queue is cleared only after every merge succeeded. A
// repeated invocation after a failure re-sends the same still-pending
// transcript and produces idempotent merges.
//
// Compress may be long-running (network-bound); cancel it via ctx. An
// abandoned call leaves storage untouched.
func (p *Pipeline) Compress(ctx context.Context) (Result, error) {
	pending, err := p.tiers.PendingSessions(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(pending) == 0 {
		return Result{NoOp: true}, nil
	}

	transcript := renderTranscript(pending)

	raw, err := p.summarizer.Summarize(ctx, transcript, schemaInstructions)
	if err != nil {
		// Providers already classify their own failures; anything else is a
		// reachability problem.
		if errors.Is(err, ErrProviderUnreachable) || errors.Is(err, ErrMalformedResponse) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %w", ErrProviderUnreachable, err)
	}

	ex, err := parseExtraction(raw)
	if err != nil {
		return Result{}, err
	}

	// Stage the full target state before any write. Multi-week batches fold
	// into the ISO week of the first queued session for determinism.
	week := buildWeeklySummary(pending, ex)
	patches := []memory.ProfilePatch{
		{Relationships: ex.LongTerm.Relationships},
		{LifeEvents: ex.LongTerm.LifeEvents},
		{Triggers: ex.LongTerm.Triggers},
		{CalmingFactors: ex.LongTerm.CalmingFactors},
	}

	// Staged commit: week upsert first, then one merge per field group, then
	// the queue clear. Each merge is individually idempotent and
	// order-independent, so a crash between steps leaves a valid (if
	// incomplete) state that the next cycle repairs.
	if err := p.tiers.UpsertWeeklySummary(ctx, week); err != nil {
		return Result{}, err
	}
	for _, patch := range patches {
		if patch.IsZero() {
			continue
		}
		if err := p.tiers.MergeIntoProfile(ctx, patch); err != nil {
			return Result{}, err
		}
	}
	if err := p.tiers.ClearPending(ctx); err != nil {
		return Result{}, err
	}

	p.logger.Info("compression cycle complete",
		"sessions", len(pending),
		"week_id", week.WeekID,
		"relationships", len(ex.LongTerm.Relationships),
		"life_events", len(ex.LongTerm.LifeEvents),
	)

	return Result{Sessions: len(pending), WeekID: week.WeekID}, nil
}

// parseExtraction pulls the first balanced JSON object out of the raw
// provider response and decodes it. Fails closed on anything else.
func parseExtraction(raw string) (extraction, error) {
	block, ok := firstJSONBlock(raw)
	if !ok {
		return extraction{}, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var ex extraction
	if err := json.Unmarshal([]byte(block), &ex); err != nil {
		return extraction{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return ex, nil
}

// buildWeeklySummary assembles the Mid-Term unit for the batch: weekId from
// the first queued session's start, bounds from the earliest and latest
// session starts, and the queue length as the session count.
func buildWeeklySummary(pending []memory.Session, ex extraction) memory.WeeklySummary {
	earliest, latest := pending[0].StartTime, pending[0].StartTime
	for _, s := range pending[1:] {
		if s.StartTime.Before(earliest) {
			earliest = s.StartTime
		}
		if s.StartTime.After(latest) {
			latest = s.StartTime
		}
	}

	return memory.WeeklySummary{
		WeekID:           memory.WeekID(pending[0].StartTime),
		StartDate:        earliest,
		EndDate:          latest,
		SessionCount:     len(pending),
		Summary:          ex.Weekly.Summary,
		Themes:           ex.Weekly.Themes,
		EmotionalPattern: ex.Weekly.EmotionalPattern,
		NotableMoments:   ex.Weekly.NotableMoments,
		Flags:            ex.Weekly.Flags,
	}
}
