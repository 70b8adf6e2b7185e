package compress

import (
	"fmt"
	"strings"

	"github.com/keepsake-ai/keepsake/internal/memory"
)

// renderTranscript flattens queued sessions into one plain-text block.
// Each session is labelled with its chronological index, start time,
// declared topics, and emotional arc, so the provider can attribute
// extracted knowledge to the right conversation.
func renderTranscript(sessions []memory.Session) string {
	var b strings.Builder
	for i, s := range sessions {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== Session %d (%s)\n", i+1, s.StartTime.Format("2006-01-02 15:04"))
		if len(s.TopicsDiscussed) > 0 {
			fmt.Fprintf(&b, "Topics: %s\n", strings.Join(s.TopicsDiscussed, ", "))
		}
		if s.EmotionalArc != "" {
			fmt.Fprintf(&b, "Emotional arc: %s\n", s.EmotionalArc)
		}
		for _, msg := range s.Messages {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
	}
	return b.String()
}
