package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/talkshelf/internal/core"
	"github.com/JonMunkholm/talkshelf/internal/web/templates"
)

// handlePopup renders the popup page.
func (s *Server) handlePopup(w http.ResponseWriter, r *http.Request) {
	level, maxDuration := parseFilter(r)
	state, err := s.service.Popup(r.Context(), level, maxDuration)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Popup(state).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

// handleSelectForm stores the selection posted by the popup page and
// redirects back to it.
func (s *Server) handleSelectForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err))
		return
	}
	if err := s.service.SelectTalk(r.Context(), r.PostForm.Get("title")); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.redirectToPopup(w, r)
}

func (s *Server) handleClearForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err))
		return
	}
	if err := s.service.ClearSelection(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.redirectToPopup(w, r)
}

func (s *Server) redirectToPopup(w http.ResponseWriter, r *http.Request) {
	maxDuration, _ := strconv.Atoi(r.PostForm.Get("maxDuration"))
	http.Redirect(w, r, templates.FilterQuery(r.PostForm.Get("level"), maxDuration), http.StatusSeeOther)
}

// handlePopupState returns the popup view model as JSON.
func (s *Server) handlePopupState(w http.ResponseWriter, r *http.Request) {
	level, maxDuration := parseFilter(r)
	state, err := s.service.Popup(r.Context(), level, maxDuration)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// selection is the body and response of /api/selection.
type selection struct {
	Title string `json:"title"`
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	title, err := s.service.SelectedTalk(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selection{Title: title})
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var body selection
	if err := decodeBody(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.SelectTalk(r.Context(), body.Title); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearSelection(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTalkDetails returns the copyable fields of a talk by title.
func (s *Server) handleTalkDetails(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")
	if unescaped, err := url.PathUnescape(title); err == nil {
		title = unescaped
	}
	details, err := s.service.TalkDetails(r.Context(), title)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}
