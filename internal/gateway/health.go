package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"` // "ok" or "degraded"
	Storage string `json:"storage,omitempty"`
}

// handleHealth returns 200 when the durable store is reachable, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if g.pinger != nil {
			if err := g.pinger.Ping(r.Context()); err != nil {
				resp.Status = "degraded"
				resp.Storage = "unreachable"
			} else {
				resp.Storage = "ok"
			}
		}

		if resp.Status == "degraded" {
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds   float64    `json:"uptime_seconds"`
	OpenSession     bool       `json:"open_session"`
	SessionMessages int        `json:"session_messages,omitempty"`
	PendingSessions int        `json:"pending_sessions"`
	StoredWeeks     int        `json:"stored_weeks"`
	ProfileUpdated  *time.Time `json:"profile_updated,omitempty"`
}

// handleStatus reports a snapshot of tier occupancy.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
		}

		sess, err := g.tiers.CurrentSession(r.Context())
		if err != nil {
			g.writeStorageError(w, "current_session", err)
			return
		}
		if sess != nil {
			resp.OpenSession = true
			resp.SessionMessages = len(sess.Messages)
		}

		pending, err := g.tiers.PendingSessions(r.Context())
		if err != nil {
			g.writeStorageError(w, "pending_sessions", err)
			return
		}
		resp.PendingSessions = len(pending)

		weeks, err := g.tiers.WeeklySummaries(r.Context())
		if err != nil {
			g.writeStorageError(w, "weekly_summaries", err)
			return
		}
		resp.StoredWeeks = len(weeks)

		profile, err := g.tiers.Profile(r.Context())
		if err != nil {
			g.writeStorageError(w, "load_profile", err)
			return
		}
		if !profile.LastUpdated.IsZero() {
			resp.ProfileUpdated = &profile.LastUpdated
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
