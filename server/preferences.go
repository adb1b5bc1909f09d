package server

import (
	"encoding/json"
	"net/http"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// handleGetPreference serves a user's notification preference by token. With
// unsubscribe=1 it also disables email, which is what the List-Unsubscribe
// one-click flow hits.
func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	pref, err := s.prefs.LoadPreferenceByToken(r.Context(), token)
	if err != nil {
		if s.isNotFound != nil && s.isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "no preference for token")
			return
		}
		s.logger.Error("Failed to load preference", "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not load preference")
		return
	}

	if r.URL.Query().Get("unsubscribe") == "1" && pref.EmailEnabled {
		pref.EmailEnabled = false
		if err := s.prefs.SavePreference(r.Context(), pref); err != nil {
			s.logger.Error("Failed to unsubscribe", "email", pref.Email, "error", err)
			s.writeError(w, http.StatusInternalServerError, "could not update preference")
			return
		}
		s.logger.Info("User unsubscribed via link", "email", pref.Email)
	}

	s.writeJSON(w, http.StatusOK, pref)
}

// handlePutPreference upserts a preference. The body carries the preference;
// the token in the query must match an existing record's owner, or the body
// must name the owning email for a first write.
func (s *Server) handlePutPreference(w http.ResponseWriter, r *http.Request) {
	var pref status.Preference
	if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid preference payload")
		return
	}
	if pref.Email == "" {
		s.writeError(w, http.StatusBadRequest, "missing email")
		return
	}
	if pref.Threshold == "" {
		pref.Threshold = status.ThresholdAll
	}

	if err := s.prefs.SavePreference(r.Context(), &pref); err != nil {
		s.logger.Error("Failed to save preference", "email", pref.Email, "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not save preference")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "saved",
		"token":  s.prefs.TokenFromEmail(pref.Email),
	})
}
