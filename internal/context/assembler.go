// Package ctxbuild renders the bounded context block injected into the
// assistant's next prompt: what is currently known about the person, drawn
// from all three memory tiers.
package ctxbuild

import (
	"context"
	"fmt"
	"strings"

	"github.com/keepsake-ai/keepsake/internal/memory"
)

// Section limits in priority order. Sections with no source data are
// omitted entirely.
const (
	maxRelationships = 5
	maxTriggers      = 5
	maxCalming       = 5
	maxSensitivities = 3
	maxRecentWeeks   = 2
)

// Assembler builds the context block from the tier manager's current state.
type Assembler struct {
	tiers *memory.TierManager
}

// NewAssembler creates an Assembler over the given tier manager.
func NewAssembler(tiers *memory.TierManager) *Assembler {
	return &Assembler{tiers: tiers}
}

// Assemble reads the three tiers and renders the context block. An empty
// string means "omit this block", not an error.
func (a *Assembler) Assemble(ctx context.Context) (string, error) {
	profile, err := a.tiers.Profile(ctx)
	if err != nil {
		return "", err
	}
	weeks, err := a.tiers.WeeklySummaries(ctx)
	if err != nil {
		return "", err
	}
	session, err := a.tiers.CurrentSession(ctx)
	if err != nil {
		return "", err
	}
	return Render(profile, weeks, session), nil
}

// Render is the pure assembly function: given fixed inputs it always
// produces the same string. Weeks must be sorted newest-first, which is the
// Mid-Term tier's storage order.
func Render(p memory.Profile, weeks []memory.WeeklySummary, open *memory.Session) string {
	var sections []string

	if p.PreferredName != "" {
		sections = append(sections, "Name: "+p.PreferredName)
	}

	if flags := styleFlags(p.Style); len(flags) > 0 {
		sections = append(sections, "Communication: "+strings.Join(flags, ", "))
	}

	if len(p.Relationships) > 0 {
		var lines []string
		for _, r := range p.Relationships[:min(len(p.Relationships), maxRelationships)] {
			lines = append(lines, fmt.Sprintf("%s (%s, %s)", r.Name, orDash(r.Relationship), orDash(r.Sentiment)))
		}
		sections = append(sections, "People: "+strings.Join(lines, "; "))
	}

	if s := joinCapped("Triggers", p.Patterns.Triggers, maxTriggers); s != "" {
		sections = append(sections, s)
	}
	if s := joinCapped("Calming", p.Patterns.CalmingFactors, maxCalming); s != "" {
		sections = append(sections, s)
	}
	if s := joinCapped("Sensitive topics", p.Sensitivities, maxSensitivities); s != "" {
		sections = append(sections, s)
	}

	recent := weeks[:min(len(weeks), maxRecentWeeks)]
	for _, w := range recent {
		line := fmt.Sprintf("%s: %s", w.WeekID, w.Summary)
		if len(w.Themes) > 0 {
			line += " (Themes: " + strings.Join(w.Themes, ", ") + ")"
		}
		sections = append(sections, line)
	}

	if flags := unionFlags(recent); len(flags) > 0 {
		sections = append(sections, "Watch for: "+strings.Join(flags, ", "))
	}

	if open != nil && len(open.Messages) > 0 {
		if len(open.TopicsDiscussed) > 0 {
			sections = append(sections, "Current session topics: "+strings.Join(open.TopicsDiscussed, ", "))
		}
		if arc := liveArc(open); arc != "" {
			sections = append(sections, "Current emotional arc: "+arc)
		} else if open.CurrentMood != "" {
			sections = append(sections, "Current mood: "+open.CurrentMood)
		}
	}

	return strings.Join(sections, "\n")
}

// liveArc derives the open session's emotional arc the same way EndSession
// stamps it: first to last declared user mood, needing at least two user
// messages. The stamped arc wins if already present.
func liveArc(s *memory.Session) string {
	if s.EmotionalArc != "" {
		return s.EmotionalArc
	}
	if s.UserMessageCount() < 2 {
		return ""
	}
	var moods []string
	for i := range s.Messages {
		if s.Messages[i].Role == memory.RoleUser && s.Messages[i].Mood != "" {
			moods = append(moods, s.Messages[i].Mood)
		}
	}
	if len(moods) == 0 {
		return ""
	}
	return moods[0] + " → " + moods[len(moods)-1]
}

// styleFlags renders the true communication-style flags in a fixed order.
func styleFlags(s memory.CommunicationStyle) []string {
	var flags []string
	if s.PrefersDirect {
		flags = append(flags, "prefers directness")
	}
	if s.PrefersGentle {
		flags = append(flags, "prefers a gentle tone")
	}
	if s.LikesHumor {
		flags = append(flags, "appreciates humor")
	}
	if s.WantsCheckIns {
		flags = append(flags, "wants check-ins")
	}
	return flags
}

// unionFlags deduplicates the flags of the given weeks, preserving
// first-seen order.
func unionFlags(weeks []memory.WeeklySummary) []string {
	seen := make(map[string]struct{})
	var flags []string
	for _, w := range weeks {
		for _, f := range w.Flags {
			key := strings.ToLower(strings.TrimSpace(f))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			flags = append(flags, strings.TrimSpace(f))
		}
	}
	return flags
}

func joinCapped(label string, items []string, max int) string {
	if len(items) == 0 {
		return ""
	}
	return label + ": " + strings.Join(items[:min(len(items), max)], ", ")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
