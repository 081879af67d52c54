package web

import (
	"net/http"

	"github.com/JonMunkholm/talkshelf/internal/core"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.Settings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings applies a partial update; absent keys are kept.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	if err := decodeBody(w, r, &patch); err != nil {
		s.respondError(w, r, err)
		return
	}
	settings, err := s.service.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleGetCustomFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.service.CustomFields(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// handleSetCustomFields replaces the whole custom field list.
func (s *Server) handleSetCustomFields(w http.ResponseWriter, r *http.Request) {
	var fields []core.CustomField
	if err := decodeBody(w, r, &fields); err != nil {
		s.respondError(w, r, err)
		return
	}
	saved, err := s.service.SetCustomFields(r.Context(), fields)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
