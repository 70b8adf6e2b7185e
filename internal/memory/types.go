// Package memory implements the tiered memory model: Short-Term sessions,
// Mid-Term weekly summaries, a Long-Term profile, and the pending-compression
// queue, together with the TierManager that owns their invariants.
package memory

import "time"

// Retention bounds for the three tiers.
const (
	// MaxSessionMessages caps the open session's message list (FIFO eviction).
	MaxSessionMessages = 20

	// MaxWeeks caps the Mid-Term tier to the most recent K calendar weeks.
	MaxWeeks = 12

	// MaxLifeEvents caps the profile's life-event list (FIFO eviction).
	MaxLifeEvents = 50

	// MaxThemes, MaxNotableMoments and MaxWeekFlags bound a WeeklySummary.
	MaxThemes         = 5
	MaxNotableMoments = 3
	MaxWeekFlags      = 3
)

// Role identifies the sender of a session message.
type Role string

// Role constants for session messages.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn stored in the open session.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Mood      string    `json:"mood,omitempty"`
	Energy    string    `json:"energy,omitempty"`
}

// Session is the Short-Term unit: one bounded conversation.
type Session struct {
	ID              string    `json:"sessionId"`
	StartTime       time.Time `json:"startTime"`
	Messages        []Message `json:"messages"`
	CurrentMood     string    `json:"currentMood,omitempty"`
	CurrentEnergy   string    `json:"currentEnergy,omitempty"`
	TopicsDiscussed []string  `json:"topicsDiscussed,omitempty"`
	EmotionalArc    string    `json:"emotionalArc,omitempty"`
}

// UserMessageCount returns the number of user-role messages in the session.
func (s *Session) UserMessageCount() int {
	n := 0
	for i := range s.Messages {
		if s.Messages[i].Role == RoleUser {
			n++
		}
	}
	return n
}

// WeeklySummary is the Mid-Term unit: one compressed calendar week.
type WeeklySummary struct {
	WeekID           string    `json:"weekId"` // ISO year-week, e.g. "2026-W35"
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	SessionCount     int       `json:"sessionCount"`
	Summary          string    `json:"summary"`
	Themes           []string  `json:"themes,omitempty"`
	EmotionalPattern string    `json:"emotionalPattern,omitempty"`
	NotableMoments   []string  `json:"notableMoments,omitempty"`
	Flags            []string  `json:"flags,omitempty"`
}

// Relationship is one person the user has mentioned. Identity is the
// case-insensitive name; a repeated name overwrites.
type Relationship struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Sentiment    string `json:"sentiment,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// LifeEvent is one notable event in the user's life. Identity is the
// case-insensitive description.
type LifeEvent struct {
	Description string    `json:"description"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// Patterns groups the profile's deduplicated append-only observation sets.
type Patterns struct {
	Triggers         []string `json:"triggers,omitempty"`
	CalmingFactors   []string `json:"calmingFactors,omitempty"`
	PeakAnxietyTimes []string `json:"peakAnxietyTimes,omitempty"`
	GrowthAreas      []string `json:"growthAreas,omitempty"`
}

// CommunicationStyle holds the profile's communication-preference flags.
type CommunicationStyle struct {
	PrefersDirect bool `json:"prefersDirect,omitempty"`
	PrefersGentle bool `json:"prefersGentle,omitempty"`
	LikesHumor    bool `json:"likesHumor,omitempty"`
	WantsCheckIns bool `json:"wantsCheckIns,omitempty"`
}

// Profile is the Long-Term singleton record.
type Profile struct {
	PreferredName    string             `json:"preferredName,omitempty"`
	Style            CommunicationStyle `json:"style,omitempty"`
	Relationships    []Relationship     `json:"relationships,omitempty"`
	LifeEvents       []LifeEvent        `json:"lifeEvents,omitempty"`
	Patterns         Patterns           `json:"patterns,omitempty"`
	Sensitivities    []string           `json:"sensitivities,omitempty"`
	EmotionalJourney string             `json:"emotionalJourney,omitempty"`
	LastUpdated      time.Time          `json:"lastUpdated,omitempty"`
}

// ProfilePatch carries partial profile fields for an incremental merge.
// Zero-valued fields are left untouched; list fields are merged under the
// deduplication rules of the corresponding Profile field.
type ProfilePatch struct {
	PreferredName    string
	Style            *CommunicationStyle
	Relationships    []Relationship
	LifeEvents       []string
	Triggers         []string
	CalmingFactors   []string
	PeakAnxietyTimes []string
	GrowthAreas      []string
	Sensitivities    []string
	EmotionalJourney string
}

// IsZero reports whether the patch carries no changes at all.
func (p ProfilePatch) IsZero() bool {
	return p.PreferredName == "" &&
		p.Style == nil &&
		len(p.Relationships) == 0 &&
		len(p.LifeEvents) == 0 &&
		len(p.Triggers) == 0 &&
		len(p.CalmingFactors) == 0 &&
		len(p.PeakAnxietyTimes) == 0 &&
		len(p.GrowthAreas) == 0 &&
		len(p.Sensitivities) == 0 &&
		p.EmotionalJourney == ""
}

// AppendRequest carries one conversation turn into AppendMessage.
type AppendRequest struct {
	Role    Role
	Content string
	Mood    string
	Energy  string

	// Topics are merged into the session's deduplicated topic set.
	Topics []string
}
