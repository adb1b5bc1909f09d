package server

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/AnuragBhanderi/StatusHub-sub001/metrics"
	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

const maxWebhookBody = 1 << 20

// statusWebhookPayload is the optional provider-sent body. The status_url
// identifies which page fired.
type statusWebhookPayload struct {
	Page struct {
		StatusURL string `json:"status_url"`
	} `json:"page"`
}

// handlePoll is the scheduled-poll trigger: fetch every service and run
// detection per slug. One slug failing is reported in its entry, never as a
// global failure.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Poll endpoint triggered")

	snaps := s.fetcher.All(r.Context())

	type pollEntry struct {
		Events     int    `json:"events"`
		EmailsSent int    `json:"emails_sent"`
		Error      string `json:"error,omitempty"`
	}
	results := make(map[string]pollEntry, len(snaps))
	for _, snap := range snaps {
		if snap.Error != "" {
			results[snap.Slug] = pollEntry{Error: snap.Error}
			continue
		}
		res, err := s.detector.Process(r.Context(), snap, status.SourceCron)
		if err != nil {
			s.logger.Warn("Detection failed", "slug", snap.Slug, "error", err)
			results[snap.Slug] = pollEntry{Error: err.Error()}
			continue
		}
		results[snap.Slug] = pollEntry{Events: len(res.Events), EmailsSent: res.EmailsSent}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "completed",
		"source":   status.SourceCron,
		"services": results,
	})
}

// handleStatusWebhook is the provider-initiated trigger. The provider cannot
// set custom headers, so authentication is a shared-secret query parameter.
func (s *Server) handleStatusWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(r.URL.Query().Get("secret")), []byte(s.webhookSecret)) != 1 {
		s.logger.Warn("Status webhook rejected: bad secret", "remote", r.RemoteAddr)
		metrics.ObserveWebhook(false)
		s.writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	svc := s.resolveWebhookService(r)
	if svc == nil {
		metrics.ObserveWebhook(false)
		s.writeError(w, http.StatusBadRequest, "could not resolve service from webhook payload")
		return
	}

	// Bypass the cache: the provider just told us something changed, and the
	// refreshed entry benefits subsequent reads.
	snap, err := s.fetcher.One(r.Context(), svc.Slug, true)
	if err != nil {
		s.logger.Error("Webhook fetch failed", "slug", svc.Slug, "error", err)
		metrics.ObserveWebhook(false)
		s.writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}

	res, err := s.detector.Process(r.Context(), snap, status.SourceWebhook)
	if err != nil {
		s.logger.Error("Webhook detection failed", "slug", svc.Slug, "error", err)
		metrics.ObserveWebhook(false)
		s.writeError(w, http.StatusInternalServerError, "event detection failed")
		return
	}

	summaries := make([]string, 0, len(res.Events))
	for _, ev := range res.Events {
		summaries = append(summaries, ev.Summary())
	}

	metrics.ObserveWebhook(true)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":        svc.Slug,
		"source":         status.SourceWebhook,
		"events":         len(res.Events),
		"emailsSent":     res.EmailsSent,
		"detectedEvents": summaries,
	})
}

// resolveWebhookService identifies which service fired: the payload's
// status_url first, then a service query parameter fallback.
func (s *Server) resolveWebhookService(r *http.Request) *status.ServiceConfig {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err == nil && len(body) > 0 {
		var payload statusWebhookPayload
		if jsonErr := json.Unmarshal(body, &payload); jsonErr == nil && payload.Page.StatusURL != "" {
			if svc, ok := s.fetcher.ResolveCallbackURL(payload.Page.StatusURL); ok {
				return svc
			}
			s.logger.Warn("Webhook status_url did not match any service", "status_url", payload.Page.StatusURL)
		}
	}

	if slug := r.URL.Query().Get("service"); slug != "" {
		if svc, ok := s.fetcher.Config(slug); ok {
			return svc
		}
		s.logger.Warn("Webhook service parameter unknown", "service", slug)
	}
	return nil
}
