// Package http builds the transcription server's HTTP surface: the
// multipart transcription endpoint, health/root endpoints, shared-secret
// auth, and the chi middleware stack. Admission control runs inside the
// transcription service; the handler maps its shed error to 503.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router for the transcription server, following
// the same middleware stack shape (RequestID, RealIP, Recoverer) this
// codebase uses elsewhere, extended with a request timeout and the
// shared-secret auth check.
func NewRouter(h *Handlers, apiToken string, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/health", h.Health)
	r.Get("/", h.Root)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware(apiToken))
		r.Post("/audio/transcriptions", h.Transcribe)
	})

	return r
}
