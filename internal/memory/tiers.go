package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keepsake-ai/keepsake/internal/storage"
)

// Storage keys for the three tiers and the pending queue.
const (
	keyShort   = "memory.short"
	keyMid     = "memory.mid"
	keyLong    = "memory.long"
	keyPending = "memory.pending"
)

// TierManager owns the three memory tiers and their invariants. It is the
// only component that writes tier storage directly.
//
// The tiers have a single logical owner per device; the internal mutex only
// serialises overlapping calls from HTTP handlers and the scheduler, it does
// not make the manager a distributed lock.
type TierManager struct {
	store  storage.Store
	logger *slog.Logger

	maxMessages int
	maxWeeks    int

	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

// Option configures optional TierManager behavior.
type Option func(*TierManager)

// WithLogger injects a structured logger. When omitted, logging is discarded.
func WithLogger(l *slog.Logger) Option {
	return func(m *TierManager) { m.logger = l }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *TierManager) { m.now = now }
}

// WithIDGenerator overrides session ID generation. Used by tests.
func WithIDGenerator(gen func() string) Option {
	return func(m *TierManager) { m.newID = gen }
}

// WithMessageCap overrides the per-session message cap.
func WithMessageCap(n int) Option {
	return func(m *TierManager) {
		if n > 0 {
			m.maxMessages = n
		}
	}
}

// WithWeekCap overrides the Mid-Term retention in weeks.
func WithWeekCap(n int) Option {
	return func(m *TierManager) {
		if n > 0 {
			m.maxWeeks = n
		}
	}
}

// NewTierManager creates a TierManager over the given store handle.
func NewTierManager(store storage.Store, opts ...Option) *TierManager {
	m := &TierManager{
		store:       store,
		maxMessages: MaxSessionMessages,
		maxWeeks:    MaxWeeks,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m
}

// CurrentSession returns the open session, or nil if none is open.
func (m *TierManager) CurrentSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadSession(ctx)
}

// StartSession opens a new Short-Term session. If a session is already open
// it is implicitly ended and queued first, so a crashed client never loses a
// dangling session on next launch.
func (m *TierManager) StartSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.endSessionLocked(ctx); err != nil {
		return nil, err
	}
	return m.startSessionLocked(ctx)
}

func (m *TierManager) startSessionLocked(ctx context.Context) (*Session, error) {
	s := &Session{
		ID:        m.newID(),
		StartTime: m.now(),
	}
	if err := m.saveSession(ctx, s); err != nil {
		return nil, err
	}
	m.logger.Debug("session started", "session_id", s.ID)
	return s, nil
}

// AppendMessage appends one turn to the open session, lazily starting a
// session if none is open. The message list is capped; the oldest message is
// evicted first. CurrentMood and CurrentEnergy are updated only on user turns.
// The session is durably written before returning.
func (m *TierManager) AppendMessage(ctx context.Context, req AppendRequest) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s, err = m.startSessionLocked(ctx)
		if err != nil {
			return nil, err
		}
	}

	s.Messages = append(s.Messages, Message{
		Role:      req.Role,
		Content:   req.Content,
		Timestamp: m.now(),
		Mood:      req.Mood,
		Energy:    req.Energy,
	})
	if over := len(s.Messages) - m.maxMessages; over > 0 {
		s.Messages = s.Messages[over:]
	}

	if req.Role == RoleUser {
		if req.Mood != "" {
			s.CurrentMood = req.Mood
		}
		if req.Energy != "" {
			s.CurrentEnergy = req.Energy
		}
	}

	for _, topic := range req.Topics {
		s.TopicsDiscussed = appendUnique(s.TopicsDiscussed, topic)
	}

	if err := m.saveSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// EndSession closes the open session and moves it onto the pending queue.
// Empty sessions are discarded, not queued. Calling EndSession with no open
// session is a harmless no-op.
func (m *TierManager) EndSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endSessionLocked(ctx)
}

func (m *TierManager) endSessionLocked(ctx context.Context) error {
	s, err := m.loadSession(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}

	if len(s.Messages) == 0 {
		// Discard, don't queue.
		if err := m.store.Remove(ctx, keyShort); err != nil {
			return fmt.Errorf("memory: clear empty session: %w", err)
		}
		m.logger.Debug("empty session discarded", "session_id", s.ID)
		return nil
	}

	s.EmotionalArc = emotionalArc(s)

	pending, err := m.loadPending(ctx)
	if err != nil {
		return err
	}
	pending = append(pending, *s)
	if err := m.savePending(ctx, pending); err != nil {
		return err
	}

	if err := m.store.Remove(ctx, keyShort); err != nil {
		return fmt.Errorf("memory: clear session slot: %w", err)
	}

	m.logger.Info("session ended and queued",
		"session_id", s.ID,
		"messages", len(s.Messages),
		"pending", len(pending),
	)
	return nil
}

// emotionalArc derives "firstUserMood → lastUserMood" when the session holds
// at least two user messages with declared moods.
func emotionalArc(s *Session) string {
	if s.UserMessageCount() < 2 {
		return ""
	}
	var moods []string
	for i := range s.Messages {
		if s.Messages[i].Role == RoleUser && s.Messages[i].Mood != "" {
			moods = append(moods, s.Messages[i].Mood)
		}
	}
	if len(moods) == 0 {
		return ""
	}
	return moods[0] + " → " + moods[len(moods)-1]
}

// PendingSessions returns the closed sessions awaiting compression, oldest first.
func (m *TierManager) PendingSessions(ctx context.Context) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadPending(ctx)
}

// ClearPending empties the pending-compression queue. Called by the
// compression pipeline only after a fully successful cycle.
func (m *TierManager) ClearPending(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Remove(ctx, keyPending); err != nil {
		return fmt.Errorf("memory: clear pending queue: %w", err)
	}
	return nil
}

// UpsertWeeklySummary inserts or replaces the summary with the same WeekID,
// re-sorts by StartDate descending, and truncates to the week cap.
func (m *TierManager) UpsertWeeklySummary(ctx context.Context, ws WeeklySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws.Themes = truncate(ws.Themes, MaxThemes)
	ws.NotableMoments = truncate(ws.NotableMoments, MaxNotableMoments)
	ws.Flags = truncate(ws.Flags, MaxWeekFlags)

	weeks, err := m.loadWeeks(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range weeks {
		if weeks[i].WeekID == ws.WeekID {
			weeks[i] = ws
			replaced = true
			break
		}
	}
	if !replaced {
		weeks = append(weeks, ws)
	}

	sort.SliceStable(weeks, func(i, j int) bool {
		return weeks[i].StartDate.After(weeks[j].StartDate)
	})
	if len(weeks) > m.maxWeeks {
		weeks = weeks[:m.maxWeeks]
	}

	return m.saveWeeks(ctx, weeks)
}

// WeeklySummaries returns the Mid-Term tier, newest first.
func (m *TierManager) WeeklySummaries(ctx context.Context) ([]WeeklySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadWeeks(ctx)
}

// Profile returns the Long-Term singleton record (zero value if never written).
func (m *TierManager) Profile(ctx context.Context) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadProfile(ctx)
}

// MergeIntoProfile applies a partial update to the Long-Term profile.
// Relationships upsert by case-insensitive name; life events, patterns and
// sensitivities deduplicate under a case-insensitive identity key; life
// events evict FIFO beyond the cap. LastUpdated is always stamped, even for
// an empty patch, so callers can observe the merge.
func (m *TierManager) MergeIntoProfile(ctx context.Context, patch ProfilePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadProfile(ctx)
	if err != nil {
		return err
	}

	if patch.PreferredName != "" {
		p.PreferredName = patch.PreferredName
	}
	if patch.Style != nil {
		p.Style = *patch.Style
	}
	if patch.EmotionalJourney != "" {
		p.EmotionalJourney = patch.EmotionalJourney
	}

	for _, r := range patch.Relationships {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		p.Relationships = upsertRelationship(p.Relationships, r)
	}

	now := m.now()
	for _, ev := range patch.LifeEvents {
		p.LifeEvents = appendLifeEvent(p.LifeEvents, ev, now)
	}
	if over := len(p.LifeEvents) - MaxLifeEvents; over > 0 {
		p.LifeEvents = p.LifeEvents[over:]
	}

	for _, v := range patch.Triggers {
		p.Patterns.Triggers = appendUnique(p.Patterns.Triggers, v)
	}
	for _, v := range patch.CalmingFactors {
		p.Patterns.CalmingFactors = appendUnique(p.Patterns.CalmingFactors, v)
	}
	for _, v := range patch.PeakAnxietyTimes {
		p.Patterns.PeakAnxietyTimes = appendUnique(p.Patterns.PeakAnxietyTimes, v)
	}
	for _, v := range patch.GrowthAreas {
		p.Patterns.GrowthAreas = appendUnique(p.Patterns.GrowthAreas, v)
	}
	for _, v := range patch.Sensitivities {
		p.Sensitivities = appendUnique(p.Sensitivities, v)
	}

	p.LastUpdated = now
	return m.saveProfile(ctx, p)
}

// FactoryReset clears all four storage keys. The store offers no multi-key
// transaction, so the clears are ordered pending, short, mid, long: a crash
// mid-reset never leaves a tier referencing deleted data.
func (m *TierManager) FactoryReset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range []string{keyPending, keyShort, keyMid, keyLong} {
		if err := m.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("memory: factory reset %s: %w", key, err)
		}
	}
	m.logger.Info("factory reset complete")
	return nil
}

// --- persistence helpers ---

func (m *TierManager) loadSession(ctx context.Context) (*Session, error) {
	raw, err := m.store.Get(ctx, keyShort)
	if err != nil {
		return nil, fmt.Errorf("memory: load short tier: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("memory: decode short tier: %w", err)
	}
	return &s, nil
}

func (m *TierManager) saveSession(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("memory: encode session: %w", err)
	}
	if err := m.store.Set(ctx, keyShort, raw); err != nil {
		return fmt.Errorf("memory: write short tier: %w", err)
	}
	return nil
}

func (m *TierManager) loadPending(ctx context.Context) ([]Session, error) {
	raw, err := m.store.Get(ctx, keyPending)
	if err != nil {
		return nil, fmt.Errorf("memory: load pending queue: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var pending []Session
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("memory: decode pending queue: %w", err)
	}
	return pending, nil
}

func (m *TierManager) savePending(ctx context.Context, pending []Session) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("memory: encode pending queue: %w", err)
	}
	if err := m.store.Set(ctx, keyPending, raw); err != nil {
		return fmt.Errorf("memory: write pending queue: %w", err)
	}
	return nil
}

func (m *TierManager) loadWeeks(ctx context.Context) ([]WeeklySummary, error) {
	raw, err := m.store.Get(ctx, keyMid)
	if err != nil {
		return nil, fmt.Errorf("memory: load mid tier: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var weeks []WeeklySummary
	if err := json.Unmarshal(raw, &weeks); err != nil {
		return nil, fmt.Errorf("memory: decode mid tier: %w", err)
	}
	return weeks, nil
}

func (m *TierManager) saveWeeks(ctx context.Context, weeks []WeeklySummary) error {
	raw, err := json.Marshal(weeks)
	if err != nil {
		return fmt.Errorf("memory: encode mid tier: %w", err)
	}
	if err := m.store.Set(ctx, keyMid, raw); err != nil {
		return fmt.Errorf("memory: write mid tier: %w", err)
	}
	return nil
}

func (m *TierManager) loadProfile(ctx context.Context) (Profile, error) {
	raw, err := m.store.Get(ctx, keyLong)
	if err != nil {
		return Profile{}, fmt.Errorf("memory: load long tier: %w", err)
	}
	if raw == nil {
		return Profile{}, nil
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("memory: decode long tier: %w", err)
	}
	return p, nil
}

func (m *TierManager) saveProfile(ctx context.Context, p Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("memory: encode profile: %w", err)
	}
	if err := m.store.Set(ctx, keyLong, raw); err != nil {
		return fmt.Errorf("memory: write long tier: %w", err)
	}
	return nil
}

// --- merge helpers ---

func identityKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// appendUnique appends value unless an entry with the same case-insensitive
// identity already exists. Blank values are ignored.
func appendUnique(list []string, value string) []string {
	key := identityKey(value)
	if key == "" {
		return list
	}
	for _, existing := range list {
		if identityKey(existing) == key {
			return list
		}
	}
	return append(list, strings.TrimSpace(value))
}

// upsertRelationship replaces the entry with the same case-insensitive name,
// or appends. Empty incoming fields preserve the existing values so a sparse
// re-extraction never erases known details.
func upsertRelationship(list []Relationship, r Relationship) []Relationship {
	key := identityKey(r.Name)
	for i := range list {
		if identityKey(list[i].Name) != key {
			continue
		}
		if r.Relationship != "" {
			list[i].Relationship = r.Relationship
		}
		if r.Sentiment != "" {
			list[i].Sentiment = r.Sentiment
		}
		if r.Notes != "" {
			list[i].Notes = r.Notes
		}
		return list
	}
	r.Name = strings.TrimSpace(r.Name)
	return append(list, r)
}

func appendLifeEvent(list []LifeEvent, description string, now time.Time) []LifeEvent {
	key := identityKey(description)
	if key == "" {
		return list
	}
	for i := range list {
		if identityKey(list[i].Description) == key {
			return list
		}
	}
	return append(list, LifeEvent{
		Description: strings.TrimSpace(description),
		RecordedAt:  now,
	})
}

func truncate(list []string, max int) []string {
	if len(list) > max {
		return list[:max]
	}
	return list
}
