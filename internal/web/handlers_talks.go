package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/talkshelf/internal/core"
)

// handleListTalks returns all talks, or the filtered list when level or
// maxDuration is given.
func (s *Server) handleListTalks(w http.ResponseWriter, r *http.Request) {
	level, maxDuration := parseFilter(r)

	var (
		talks []core.Talk
		err   error
	)
	if level == "" && maxDuration == 0 {
		talks, err = s.service.ListTalks(r.Context())
	} else {
		talks, err = s.service.FilterTalks(r.Context(), level, maxDuration)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, talks)
}

func (s *Server) handleAddTalk(w http.ResponseWriter, r *http.Request) {
	var talk core.Talk
	if err := decodeBody(w, r, &talk); err != nil {
		s.respondError(w, r, err)
		return
	}
	saved, err := s.service.AddTalk(r.Context(), talk)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetTalk(w http.ResponseWriter, r *http.Request) {
	index, err := talkIndex(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	talk, err := s.service.GetTalk(r.Context(), index)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, talk)
}

func (s *Server) handleUpdateTalk(w http.ResponseWriter, r *http.Request) {
	index, err := talkIndex(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var talk core.Talk
	if err := decodeBody(w, r, &talk); err != nil {
		s.respondError(w, r, err)
		return
	}
	saved, err := s.service.UpdateTalk(r.Context(), index, talk)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleDeleteTalk removes one talk and returns it.
func (s *Server) handleDeleteTalk(w http.ResponseWriter, r *http.Request) {
	index, err := talkIndex(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	deleted, err := s.service.DeleteTalk(r.Context(), index)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleDeleteAllTalks(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.DeleteAllTalks(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// talkIndex parses the {index} URL parameter. A malformed index cannot name
// a talk, so it is reported as not found.
func talkIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: index %q", core.ErrTalkNotFound, raw)
	}
	return index, nil
}

// parseFilter reads the popup filters from the query string. An invalid
// maxDuration is treated as no limit.
func parseFilter(r *http.Request) (string, int) {
	q := r.URL.Query()
	maxDuration, err := strconv.Atoi(q.Get("maxDuration"))
	if err != nil || maxDuration < 0 {
		maxDuration = 0
	}
	return q.Get("level"), maxDuration
}
