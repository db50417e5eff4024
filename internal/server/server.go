// Package server wires the HTTP routes and middleware.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"renoquote/internal/api"
	"renoquote/internal/auth"
)

// Options configure the router.
type Options struct {
	Guard auth.KeyGuard
	// MediaDir is served under /media/ when rendered images are stored locally.
	MediaDir string
}

// Router builds the chi router shared by the HTTP server and the Lambda entry point.
func Router(h api.Handler, opts Options) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(accessLog)
	router.Use(middleware.Recoverer)

	router.Get("/health", h.Health)
	routes(router, h, opts.Guard)
	// The web client calls the same routes under /api.
	router.Route("/api", func(r chi.Router) { routes(r, h, opts.Guard) })

	if opts.MediaDir != "" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(opts.MediaDir)))
		router.Handle("/media/*", fs)
	}
	return router
}

func routes(r chi.Router, h api.Handler, guard auth.KeyGuard) {
	r.Post("/renovation/process", h.ProcessRenovation)
	r.Post("/cost-estimation", h.CostEstimation)
	r.Post("/inspiration", h.Inspiration)
	r.Post("/transformation", h.Transformation)
	r.Post("/leads", h.SubmitLead)

	r.Group(func(r chi.Router) {
		r.Use(guard.Require)
		r.Get("/test-banana", h.TestBanana)
		r.Get("/leads", h.ListLeads)
		r.Get("/leads/stream", h.StreamLeads)
	})
}

// New constructs the HTTP server. The write timeout must exceed the orchestrator's
// request budget so the degraded answer still reaches the client.
func New(port string, h api.Handler, opts Options) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Router(h, opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", srv.Addr).Msg("server ready")
	return srv
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(started)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
