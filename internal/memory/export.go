package memory

import (
	"context"
	"time"
)

// ExportDocument is the backup format: the full tiered state in one JSON
// document. The pending queue is deliberately excluded — it is transient
// work-in-progress, not knowledge.
type ExportDocument struct {
	ExportDate time.Time       `json:"exportDate"`
	Session    *Session        `json:"session,omitempty"`
	Weeks      []WeeklySummary `json:"weeks"`
	Profile    Profile         `json:"profile"`
}

// Export snapshots the three tiers into a single document.
func (m *TierManager) Export(ctx context.Context) (ExportDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.loadSession(ctx)
	if err != nil {
		return ExportDocument{}, err
	}
	weeks, err := m.loadWeeks(ctx)
	if err != nil {
		return ExportDocument{}, err
	}
	profile, err := m.loadProfile(ctx)
	if err != nil {
		return ExportDocument{}, err
	}

	return ExportDocument{
		ExportDate: m.now(),
		Session:    session,
		Weeks:      weeks,
		Profile:    profile,
	}, nil
}

// Import overwrites each tier wholesale from the document. This is a backup
// restore, not a merge: existing tier contents are replaced, and retention
// bounds are re-applied to the incoming data.
func (m *TierManager) Import(ctx context.Context, doc ExportDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc.Session != nil {
		if over := len(doc.Session.Messages) - m.maxMessages; over > 0 {
			doc.Session.Messages = doc.Session.Messages[over:]
		}
		if err := m.saveSession(ctx, doc.Session); err != nil {
			return err
		}
	} else if err := m.store.Remove(ctx, keyShort); err != nil {
		return err
	}

	weeks := doc.Weeks
	if len(weeks) > m.maxWeeks {
		weeks = weeks[:m.maxWeeks]
	}
	if err := m.saveWeeks(ctx, weeks); err != nil {
		return err
	}

	profile := doc.Profile
	if over := len(profile.LifeEvents) - MaxLifeEvents; over > 0 {
		profile.LifeEvents = profile.LifeEvents[over:]
	}
	if err := m.saveProfile(ctx, profile); err != nil {
		return err
	}

	m.logger.Info("memory import complete",
		"weeks", len(weeks),
		"relationships", len(profile.Relationships),
	)
	return nil
}
