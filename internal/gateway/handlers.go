package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/keepsake-ai/keepsake/internal/compress"
	"github.com/keepsake-ai/keepsake/internal/memory"
	"github.com/keepsake-ai/keepsake/internal/metrics"
	"github.com/keepsake-ai/keepsake/internal/storage"
)

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStorageError maps durable store failures to 503, everything else to 500.
func (g *Gateway) writeStorageError(w http.ResponseWriter, op string, err error) {
	g.logger.Error("gateway: "+op+" failed", "error", err)
	if errors.Is(err, storage.ErrUnavailable) {
		metrics.StorageErrors.WithLabelValues(op).Inc()
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// appendMessageRequest is the body for POST /api/messages.
type appendMessageRequest struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Mood    string   `json:"mood,omitempty"`
	Energy  string   `json:"energy,omitempty"`
	Topics  []string `json:"topics,omitempty"`
}

// appendMessageResponse reports whether the message was stored. A flagged
// message is acknowledged but never written.
type appendMessageResponse struct {
	Stored    bool   `json:"stored"`
	Flagged   bool   `json:"flagged,omitempty"`
	Category  string `json:"category,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Messages  int    `json:"messages,omitempty"`
}

// handleAppendMessage screens and appends one conversation turn.
func (g *Gateway) handleAppendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		role := memory.Role(req.Role)
		if role != memory.RoleUser && role != memory.RoleAssistant {
			http.Error(w, "role must be \"user\" or \"assistant\"", http.StatusBadRequest)
			return
		}
		if req.Content == "" {
			http.Error(w, "content is required", http.StatusBadRequest)
			return
		}

		if role == memory.RoleUser {
			if res := g.detector.Check(req.Content); res.Flagged {
				metrics.SafeguardFlagged.WithLabelValues(res.Category).Inc()
				writeJSON(w, http.StatusOK, appendMessageResponse{
					Flagged:  true,
					Category: res.Category,
				})
				return
			}
		}

		sess, err := g.tiers.AppendMessage(r.Context(), memory.AppendRequest{
			Role:    role,
			Content: req.Content,
			Mood:    req.Mood,
			Energy:  req.Energy,
			Topics:  req.Topics,
		})
		if err != nil {
			g.writeStorageError(w, "append_message", err)
			return
		}

		metrics.MessagesAppended.WithLabelValues(string(role)).Inc()
		writeJSON(w, http.StatusOK, appendMessageResponse{
			Stored:    true,
			SessionID: sess.ID,
			Messages:  len(sess.Messages),
		})
	}
}

// handleCurrentSession returns the open session, or 404 when none exists.
func (g *Gateway) handleCurrentSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := g.tiers.CurrentSession(r.Context())
		if err != nil {
			g.writeStorageError(w, "current_session", err)
			return
		}
		if sess == nil {
			http.Error(w, "no open session", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// handleStartSession opens a fresh session. A still-open previous session is
// closed and queued first.
func (g *Gateway) handleStartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := g.tiers.StartSession(r.Context())
		if err != nil {
			g.writeStorageError(w, "start_session", err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

// handleEndSession closes the open session and queues it for compression.
func (g *Gateway) handleEndSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := g.tiers.EndSession(r.Context()); err != nil {
			g.writeStorageError(w, "end_session", err)
			return
		}
		metrics.SessionsEnded.Inc()
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleContext returns the assembled context block for prompt injection.
func (g *Gateway) handleContext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		block, err := g.assembler.Assemble(r.Context())
		if err != nil {
			g.writeStorageError(w, "assemble_context", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"context": block})
	}
}

// compressResponse is the body for POST /api/compress.
type compressResponse struct {
	Status   string `json:"status"` // "compressed" or "noop"
	Sessions int    `json:"sessions,omitempty"`
	WeekID   string `json:"weekId,omitempty"`
}

// handleCompress runs one compression cycle synchronously. On failure the
// pending queue is untouched and the next attempt retries the same batch.
func (g *Gateway) handleCompress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		res, err := g.pipeline.Compress(r.Context())
		metrics.CompressionDuration.Observe(time.Since(start).Seconds())

		switch {
		case errors.Is(err, compress.ErrProviderUnreachable):
			metrics.CompressionRuns.WithLabelValues("provider_error").Inc()
			http.Error(w, "summarizer unreachable", http.StatusBadGateway)
			return
		case errors.Is(err, compress.ErrMalformedResponse):
			metrics.CompressionRuns.WithLabelValues("malformed").Inc()
			http.Error(w, "summarizer returned malformed output", http.StatusBadGateway)
			return
		case err != nil:
			metrics.CompressionRuns.WithLabelValues("error").Inc()
			g.writeStorageError(w, "compress", err)
			return
		}

		if res.NoOp {
			metrics.CompressionRuns.WithLabelValues("noop").Inc()
			writeJSON(w, http.StatusOK, compressResponse{Status: "noop"})
			return
		}

		metrics.CompressionRuns.WithLabelValues("success").Inc()
		writeJSON(w, http.StatusOK, compressResponse{
			Status:   "compressed",
			Sessions: res.Sessions,
			WeekID:   res.WeekID,
		})
	}
}

// mergeProfileRequest is the body for POST /api/profile: explicit facts the
// user asked to be remembered, merged under the usual deduplication rules.
type mergeProfileRequest struct {
	PreferredName    string                     `json:"preferredName,omitempty"`
	Style            *memory.CommunicationStyle `json:"style,omitempty"`
	Relationships    []memory.Relationship      `json:"relationships,omitempty"`
	LifeEvents       []string                   `json:"lifeEvents,omitempty"`
	Triggers         []string                   `json:"triggers,omitempty"`
	CalmingFactors   []string                   `json:"calmingFactors,omitempty"`
	PeakAnxietyTimes []string                   `json:"peakAnxietyTimes,omitempty"`
	GrowthAreas      []string                   `json:"growthAreas,omitempty"`
	Sensitivities    []string                   `json:"sensitivities,omitempty"`
	EmotionalJourney string                     `json:"emotionalJourney,omitempty"`
}

// handleMergeProfile applies a direct profile merge.
func (g *Gateway) handleMergeProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mergeProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		patch := memory.ProfilePatch{
			PreferredName:    req.PreferredName,
			Style:            req.Style,
			Relationships:    req.Relationships,
			LifeEvents:       req.LifeEvents,
			Triggers:         req.Triggers,
			CalmingFactors:   req.CalmingFactors,
			PeakAnxietyTimes: req.PeakAnxietyTimes,
			GrowthAreas:      req.GrowthAreas,
			Sensitivities:    req.Sensitivities,
			EmotionalJourney: req.EmotionalJourney,
		}
		if patch.IsZero() {
			http.Error(w, "empty profile patch", http.StatusBadRequest)
			return
		}

		if err := g.tiers.MergeIntoProfile(r.Context(), patch); err != nil {
			g.writeStorageError(w, "merge_profile", err)
			return
		}

		profile, err := g.tiers.Profile(r.Context())
		if err != nil {
			g.writeStorageError(w, "load_profile", err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// handleExport returns a full backup document.
func (g *Gateway) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := g.tiers.Export(r.Context())
		if err != nil {
			g.writeStorageError(w, "export", err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// handleImport restores a backup document, replacing current memory wholesale.
func (g *Gateway) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc memory.ExportDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, "invalid backup document", http.StatusBadRequest)
			return
		}

		if err := g.tiers.Import(r.Context(), doc); err != nil {
			g.writeStorageError(w, "import", err)
			return
		}

		g.logger.Info("memory restored from backup", "exportDate", doc.ExportDate)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleReset erases all tiers.
func (g *Gateway) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := g.tiers.FactoryReset(r.Context()); err != nil {
			g.writeStorageError(w, "factory_reset", err)
			return
		}

		g.logger.Info("factory reset completed")
		w.WriteHeader(http.StatusNoContent)
	}
}
