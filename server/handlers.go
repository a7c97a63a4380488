package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/session"
)

// StartSessionRequest is the body of POST /session.
type StartSessionRequest struct {
	Prompt  string         `json:"prompt"`
	Mode    string         `json:"mode,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// StatusResponse is the body of GET /session/{id}.
type StatusResponse struct {
	Meta   core.SessionMeta `json:"meta"`
	Events []core.Event     `json:"events"`
}

// startSession handles POST /session.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	id, err := s.manager.Start(r.Context(), req.Prompt, req.Mode, req.Options)
	if errors.Is(err, session.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("start session", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to start session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// getStatus handles GET /session/{sessionID}.
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	meta, events, err := s.manager.Status(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("session status", "session_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Meta: meta, Events: events})
}

// cancelSession handles POST /session/{sessionID}/cancel.
func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	err := s.manager.Cancel(r.Context(), id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
	case errors.Is(err, session.ErrTerminal):
		writeError(w, http.StatusConflict, ErrCodeConflict, "session already terminal")
	case err != nil:
		s.logger.Error("cancel session", "session_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to cancel session")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
	}
}

// sessionCallback handles POST /session/{sessionID}/callback. The raw body
// is verified against the signature header before any state is touched.
func (s *Server) sessionCallback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "unreadable body")
		return
	}

	err = s.manager.Callback(r.Context(), id, body, r.Header.Get(SignatureHeader))
	switch {
	case errors.Is(err, session.ErrMissingSecret), errors.Is(err, session.ErrBadSignature):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "signature verification failed")
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
	case errors.Is(err, session.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case err != nil:
		s.logger.Error("session callback", "session_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to record callback")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
	}
}
