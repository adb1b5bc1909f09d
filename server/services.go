package server

import (
	"net/http"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// serviceSummary is the list-endpoint shape: snapshot plus display fields
// from the catalog.
type serviceSummary struct {
	Slug      string        `json:"slug"`
	Name      string        `json:"name"`
	Category  string        `json:"category"`
	Status    status.Status `json:"status"`
	Incidents int           `json:"incidents"`
	Error     string        `json:"error,omitempty"`
}

// handleListServices serves the public read API. This is the interactive
// path: it reads through the fetch cache and never touches the persisted
// baseline or the dispatcher.
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	snaps := s.fetcher.All(r.Context())

	summaries := make([]serviceSummary, 0, len(snaps))
	for _, snap := range snaps {
		summary := serviceSummary{
			Slug:      snap.Slug,
			Status:    snap.Status,
			Incidents: len(snap.Incidents),
			Error:     snap.Error,
		}
		if svc, ok := s.fetcher.Config(snap.Slug); ok {
			summary.Name = svc.Name
			summary.Category = svc.Category
		}
		summaries = append(summaries, summary)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"services": summaries})
}

// handleServiceDetail serves one full snapshot. Also purely observational.
func (s *Server) handleServiceDetail(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	snap, err := s.fetcher.One(r.Context(), slug, false)
	if err != nil {
		if _, known := s.fetcher.Config(slug); !known {
			s.writeError(w, http.StatusNotFound, "no such service: "+slug)
			return
		}
		s.logger.Warn("Detail fetch failed", "slug", slug, "error", err)
		s.writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}

	svc, _ := s.fetcher.Config(slug)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":  svc,
		"snapshot": snap,
	})
}
