// Package server exposes the session operations over HTTP: create, status,
// cancel, signed callback and an SSE progress stream.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/session"
)

// Error codes returned in structured error bodies.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeInternalError  = "internal_error"
)

// SignatureHeader carries the base64url HMAC-SHA256 signature of the raw
// callback body.
const SignatureHeader = "X-Taskmesh-Signature"

// Server wires the session manager to a chi router.
type Server struct {
	router  chi.Router
	manager *session.Manager
	logger  logging.Logger
}

// Options configure the HTTP server.
type Options struct {
	Logger logging.Logger
}

// New constructs a Server around a session manager.
func New(manager *session.Manager, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		router:  chi.NewRouter(),
		manager: manager,
		logger:  opts.Logger,
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", SignatureHeader},
	}))
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Route("/session", func(r chi.Router) {
		r.Post("/", s.startSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getStatus)
			r.Post("/cancel", s.cancelSession)
			r.Post("/callback", s.sessionCallback)
			r.Get("/stream", s.streamSession)
		})
	})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}
