package compress_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/keepsake-ai/keepsake/internal/compress"
	"github.com/keepsake-ai/keepsake/internal/memory"
	"github.com/keepsake-ai/keepsake/internal/storage"
)

// fakeSummarizer scripts responses per call: an entry that is an error fails
// the call, otherwise the string is returned verbatim.
type fakeSummarizer struct {
	responses []any // string or error, consumed in order
	calls     int
	lastText  string
}

var _ compress.Summarizer = (*fakeSummarizer)(nil)

func (f *fakeSummarizer) Summarize(_ context.Context, transcript, _ string) (string, error) {
	f.calls++
	f.lastText = transcript
	if len(f.responses) == 0 {
		return "", errors.New("fakeSummarizer: no scripted response")
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	if err, ok := next.(error); ok {
		return "", err
	}
	return next.(string), nil
}

const validResponse = `Here you go:
{
  "weekly": {
    "summary": "A week of ups and downs settling into calm.",
    "themes": ["sleep", "work stress"],
    "emotionalPattern": "anxious early, calmer late",
    "notableMoments": ["finished the big report"],
    "flags": ["poor sleep"]
  },
  "longTerm": {
    "relationships": [{"name": "Maya", "relationship": "sister", "sentiment": "close"}],
    "lifeEvents": ["started a new job"],
    "triggers": ["deadlines"],
    "calmingFactors": ["evening walks"]
  }
}`

// seedPending queues one two-message session; the session's start time comes
// from the manager's clock.
func seedPending(t *testing.T, m *memory.TierManager) {
	t.Helper()
	ctx := context.Background()
	if _, err := m.AppendMessage(ctx, memory.AppendRequest{
		Role: memory.RoleUser, Content: "hello", Mood: "anxious",
	}); err != nil {
		t.Fatalf("AppendMessage: unexpected error: %v", err)
	}
	if _, err := m.AppendMessage(ctx, memory.AppendRequest{
		Role: memory.RoleUser, Content: "feeling better now", Mood: "calm",
	}); err != nil {
		t.Fatalf("AppendMessage: unexpected error: %v", err)
	}
	if err := m.EndSession(ctx); err != nil {
		t.Fatalf("EndSession: unexpected error: %v", err)
	}
}

func newPipelineFixture(t *testing.T, clock func() time.Time, responses ...any) (*compress.Pipeline, *memory.TierManager, *fakeSummarizer) {
	t.Helper()
	store := storage.NewMemStore()
	opts := []memory.Option{}
	if clock != nil {
		opts = append(opts, memory.WithClock(clock))
	}
	tiers := memory.NewTierManager(store, opts...)
	summarizer := &fakeSummarizer{responses: responses}
	return compress.NewPipeline(tiers, summarizer), tiers, summarizer
}

func TestCompress_EmptyQueueIsNoOp(t *testing.T) {
	t.Parallel()

	pipeline, _, summarizer := newPipelineFixture(t, nil, validResponse)

	res, err := pipeline.Compress(context.Background())
	if err != nil {
		t.Fatalf("Compress: unexpected error: %v", err)
	}
	if !res.NoOp {
		t.Error("Compress on empty queue: NoOp = false, want true")
	}
	if summarizer.calls != 0 {
		t.Errorf("summarizer called %d times on empty queue, want 0", summarizer.calls)
	}
}

func TestCompress_SuccessfulCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessionStart := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC) // Monday of W35
	pipeline, tiers, summarizer := newPipelineFixture(t, func() time.Time { return sessionStart }, validResponse)
	seedPending(t, tiers)

	res, err := pipeline.Compress(ctx)
	if err != nil {
		t.Fatalf("Compress: unexpected error: %v", err)
	}
	if res.NoOp {
		t.Fatal("Compress: NoOp = true, want real cycle")
	}
	if res.Sessions != 1 {
		t.Errorf("Sessions = %d, want 1", res.Sessions)
	}
	if res.WeekID != "2026-W35" {
		t.Errorf("WeekID = %q, want %q", res.WeekID, "2026-W35")
	}

	// Transcript carried the session content and arc.
	if !strings.Contains(summarizer.lastText, "feeling better now") {
		t.Error("transcript missing message content")
	}
	if !strings.Contains(summarizer.lastText, "anxious → calm") {
		t.Error("transcript missing emotional arc")
	}

	// Mid-Term written.
	weeks, err := tiers.WeeklySummaries(ctx)
	if err != nil {
		t.Fatalf("WeeklySummaries: unexpected error: %v", err)
	}
	if len(weeks) != 1 {
		t.Fatalf("weeks = %d, want 1", len(weeks))
	}
	if weeks[0].SessionCount != 1 {
		t.Errorf("SessionCount = %d, want 1", weeks[0].SessionCount)
	}
	if weeks[0].Summary == "" {
		t.Error("weekly summary is empty")
	}

	// Long-Term merged.
	p, err := tiers.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: unexpected error: %v", err)
	}
	if len(p.Relationships) != 1 || p.Relationships[0].Name != "Maya" {
		t.Errorf("relationships = %+v, want Maya", p.Relationships)
	}
	if len(p.Patterns.Triggers) != 1 || p.Patterns.Triggers[0] != "deadlines" {
		t.Errorf("triggers = %v, want [deadlines]", p.Patterns.Triggers)
	}
	if len(p.LifeEvents) != 1 {
		t.Errorf("life events = %+v, want 1 entry", p.LifeEvents)
	}

	// Queue cleared only after full success.
	pending, _ := tiers.PendingSessions(ctx)
	if len(pending) != 0 {
		t.Errorf("pending = %d after success, want 0", len(pending))
	}
}

func TestCompress_FailClosedOnUnparsableResponse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pipeline, tiers, _ := newPipelineFixture(t, nil, "Sorry, I can't help with that.")
	seedPending(t, tiers)

	before, _ := tiers.PendingSessions(ctx)

	_, err := pipeline.Compress(ctx)
	if !errors.Is(err, compress.ErrMalformedResponse) {
		t.Fatalf("Compress: error = %v, want ErrMalformedResponse", err)
	}

	after, _ := tiers.PendingSessions(ctx)
	if len(after) != len(before) {
		t.Errorf("pending = %d after failure, want unchanged %d", len(after), len(before))
	}
	weeks, _ := tiers.WeeklySummaries(ctx)
	if len(weeks) != 0 {
		t.Errorf("weeks = %d after failure, want 0", len(weeks))
	}
	p, _ := tiers.Profile(ctx)
	if len(p.Relationships) != 0 || !p.LastUpdated.IsZero() {
		t.Errorf("profile changed after failure: %+v", p)
	}
}

func TestCompress_FailClosedOnProviderError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pipeline, tiers, _ := newPipelineFixture(t, nil, errors.New("connection refused"))
	seedPending(t, tiers)

	_, err := pipeline.Compress(ctx)
	if !errors.Is(err, compress.ErrProviderUnreachable) {
		t.Fatalf("Compress: error = %v, want ErrProviderUnreachable", err)
	}

	pending, _ := tiers.PendingSessions(ctx)
	if len(pending) != 1 {
		t.Errorf("pending = %d after provider outage, want 1", len(pending))
	}
}

func TestCompress_AtLeastOnceRetryMatchesSingleSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := func() time.Time { return time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC) }

	// Run A: fail once (simulated outage), then succeed.
	pipelineA, tiersA, _ := newPipelineFixture(t, clock,
		errors.New("provider outage"), validResponse)
	seedPending(t, tiersA)
	if _, err := pipelineA.Compress(ctx); err == nil {
		t.Fatal("first Compress: expected error, got nil")
	}
	if _, err := pipelineA.Compress(ctx); err != nil {
		t.Fatalf("second Compress: unexpected error: %v", err)
	}

	// Run B: succeed on the first try with identical inputs.
	pipelineB, tiersB, _ := newPipelineFixture(t, clock, validResponse)
	seedPending(t, tiersB)
	if _, err := pipelineB.Compress(ctx); err != nil {
		t.Fatalf("Compress (control): unexpected error: %v", err)
	}

	weeksA, _ := tiersA.WeeklySummaries(ctx)
	weeksB, _ := tiersB.WeeklySummaries(ctx)
	if len(weeksA) != len(weeksB) || weeksA[0].WeekID != weeksB[0].WeekID || weeksA[0].Summary != weeksB[0].Summary {
		t.Errorf("retry path weeks = %+v, control = %+v", weeksA, weeksB)
	}

	profileA, _ := tiersA.Profile(ctx)
	profileB, _ := tiersB.Profile(ctx)
	if len(profileA.Relationships) != len(profileB.Relationships) ||
		len(profileA.Patterns.Triggers) != len(profileB.Patterns.Triggers) ||
		len(profileA.LifeEvents) != len(profileB.LifeEvents) {
		t.Errorf("retry path profile = %+v, control = %+v", profileA, profileB)
	}

	pendingA, _ := tiersA.PendingSessions(ctx)
	if len(pendingA) != 0 {
		t.Errorf("pending = %d after successful retry, want 0", len(pendingA))
	}
}

func TestCompress_RepeatedCompressionIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := func() time.Time { return time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC) }
	pipeline, tiers, _ := newPipelineFixture(t, clock, validResponse, validResponse)

	seedPending(t, tiers)
	if _, err := pipeline.Compress(ctx); err != nil {
		t.Fatalf("Compress: unexpected error: %v", err)
	}

	// Queue the same kind of session again and compress a second time:
	// weekId upsert overwrites, profile merges deduplicate.
	seedPending(t, tiers)
	if _, err := pipeline.Compress(ctx); err != nil {
		t.Fatalf("Compress (second): unexpected error: %v", err)
	}

	weeks, _ := tiers.WeeklySummaries(ctx)
	if len(weeks) != 1 {
		t.Fatalf("weeks = %d, want 1 (same weekId overwrites)", len(weeks))
	}
	p, _ := tiers.Profile(ctx)
	if len(p.Relationships) != 1 {
		t.Errorf("relationships = %d, want 1 (dedup by name)", len(p.Relationships))
	}
	if len(p.Patterns.CalmingFactors) != 1 {
		t.Errorf("calming factors = %d, want 1 (dedup)", len(p.Patterns.CalmingFactors))
	}
}

func TestCompress_MultiWeekBatchFoldsIntoFirstSessionWeek(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// Two sessions two weeks apart: the batch folds into the first
	// session's ISO week, with bounds spanning both starts.
	current := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC) // Monday of W33
	pipeline, tiers, _ := newPipelineFixture(t, func() time.Time { return current }, validResponse)

	seedPending(t, tiers)
	current = time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC) // Monday of W35
	seedPending(t, tiers)

	res, err := pipeline.Compress(ctx)
	if err != nil {
		t.Fatalf("Compress: unexpected error: %v", err)
	}
	if res.WeekID != "2026-W33" {
		t.Errorf("WeekID = %q, want %q (first session's week)", res.WeekID, "2026-W33")
	}

	weeks, _ := tiers.WeeklySummaries(ctx)
	if len(weeks) != 1 {
		t.Fatalf("weeks = %d, want 1", len(weeks))
	}
	if !weeks[0].StartDate.Equal(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("StartDate = %v, want earliest session start", weeks[0].StartDate)
	}
	if !weeks[0].EndDate.Equal(time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("EndDate = %v, want latest session start", weeks[0].EndDate)
	}
	if weeks[0].SessionCount != 2 {
		t.Errorf("SessionCount = %d, want 2", weeks[0].SessionCount)
	}
}
