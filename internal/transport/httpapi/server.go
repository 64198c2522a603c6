// Package httpapi serves the request/response side of the controller:
// the media ingestion endpoint, a health check, and (optionally) the
// static web client.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/version"
)

// Submitter enqueues an ingestion request and waits for its outcome.
// Implemented by the ingestion queue.
type Submitter interface {
	Submit(ctx context.Context, url string) (string, error)
}

// Prober answers whether the player state machine is responsive.
type Prober interface {
	Probe(budget time.Duration) error
}

// Server bundles the HTTP handlers.
type Server struct {
	router *mux.Router
}

type downloadRequest struct {
	URL string `json:"url"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// New builds the HTTP API. staticDir may be empty (no static serving).
func New(queue Submitter, prober Prober, staticDir string) *Server {
	s := &Server{router: mux.NewRouter()}

	s.router.HandleFunc("/download", s.handleDownload(queue)).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth(prober)).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/version", s.handleVersion).Methods(http.MethodGet)

	if staticDir != "" {
		s.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
		}).Methods(http.MethodGet)
		s.router.PathPrefix("/static/").Handler(
			http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	return s
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleDownload(queue Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req downloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "No URL provided."})
			return
		}

		msg, err := queue.Submit(r.Context(), req.URL)
		if err != nil {
			if r.Context().Err() != nil {
				// Client went away; nothing left to answer.
				return
			}
			if msg == "" {
				msg = err.Error()
			}
			writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msg})
			return
		}

		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}

func (s *Server) handleHealth(prober Prober) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := prober.Probe(2 * time.Second); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Could not write JSON response")
	}
}
