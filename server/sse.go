package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hupe1980/taskmesh/session"
)

// streamSession handles GET /session/{sessionID}/stream, delivering one JSON
// frame per SSE data line until the session completes or the client
// disconnects.
func (s *Server) streamSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "streaming unsupported")
		return
	}

	frames, err := s.manager.Stream(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("open session stream", "session_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to open stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for frame := range frames {
		payload, err := json.Marshal(frame)
		if err != nil {
			s.logger.Warn("marshal stream frame", "session_id", id, "err", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}
