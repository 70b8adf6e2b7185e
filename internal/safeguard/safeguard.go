// Package safeguard screens user messages for crisis content before they
// reach the memory subsystem. Flagged messages are never stored or forwarded;
// only a content-free event is logged.
package safeguard

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// crisisPhrases are matched case-insensitively on word boundaries.
var crisisPhrases = []string{
	"kill myself",
	"end my life",
	"want to die",
	"suicide",
	"suicidal",
	"self-harm",
	"self harm",
	"hurt myself",
	"no reason to live",
}

// Result is the outcome of screening one message.
type Result struct {
	// Flagged is true when the message must not reach the memory subsystem.
	Flagged bool

	// Category names the matched concern ("crisis" for the built-in set,
	// "custom" for operator-configured phrases). Never contains message text.
	Category string
}

// Detector screens message content against crisis phrases. All methods are
// safe for concurrent use.
type Detector struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	custom   []string
	logger   *slog.Logger
}

// NewDetector creates a Detector pre-loaded with the built-in crisis phrase
// set. A nil logger discards the content-free flag events.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Detector{logger: logger}
	for _, phrase := range crisisPhrases {
		d.patterns = append(d.patterns, compilePhrase(phrase))
	}
	return d
}

// AddPhrase adds an operator-configured phrase to the screen.
// Blank phrases are ignored.
func (d *Detector) AddPhrase(phrase string) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.custom = append(d.custom, strings.ToLower(phrase))
}

// Check screens content and reports whether it must be withheld from memory.
// On a flag it logs an event without the message text.
func (d *Detector) Check(content string) Result {
	d.mu.RLock()
	patterns := d.patterns
	custom := d.custom
	d.mu.RUnlock()

	for _, p := range patterns {
		if p.MatchString(content) {
			d.logger.Warn("safeguard flagged a message", "category", "crisis")
			return Result{Flagged: true, Category: "crisis"}
		}
	}

	lower := strings.ToLower(content)
	for _, phrase := range custom {
		if strings.Contains(lower, phrase) {
			d.logger.Warn("safeguard flagged a message", "category", "custom")
			return Result{Flagged: true, Category: "custom"}
		}
	}

	return Result{}
}

// compilePhrase builds a case-insensitive, word-bounded matcher so that
// e.g. "suicide" does not match inside an unrelated longer word.
func compilePhrase(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
}
