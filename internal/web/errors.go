package web

// errors.go turns handler errors into responses.
//
// Every error is:
//   - logged with full technical details and the request id
//   - mapped by core.MapError to a message, an action and a code
//   - given a status by statusFor from its sentinel
//   - rendered as JSON for /api and as an HTML alert for pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/talkshelf/internal/core"
	"github.com/JonMunkholm/talkshelf/internal/sessionize"
	"github.com/JonMunkholm/talkshelf/internal/web/templates"
)

// ErrorResponse is the JSON body of an API error.
// Code is machine-readable; Message and Action are for people.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	)

	if status == http.StatusServiceUnavailable && errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		respondErrorJSON(w, userMsg, status)
		return
	}
	respondErrorHTML(r.Context(), w, userMsg, status)
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var statusErr *sessionize.StatusError
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrInvalidHeader),
		errors.Is(err, core.ErrInvalidJSON),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrUnknownFormat),
		errors.Is(err, core.ErrTitleRequired),
		errors.Is(err, core.ErrFieldNameRequired),
		errors.Is(err, core.ErrInvalidURL),
		errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTalkNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoSessionizeURL):
		return http.StatusConflict
	case errors.Is(err, core.ErrStorage),
		errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.As(err, &statusErr),
		errors.Is(err, sessionize.ErrRequestFailed),
		errors.Is(err, sessionize.ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func respondErrorHTML(ctx context.Context, w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(ctx, w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// wantsJSON reports whether the client expects a JSON error.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// decodeBody decodes a JSON request body of at most maxBody bytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

const maxBody = 1 << 20
