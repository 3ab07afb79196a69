package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/haskel/pacer/internal/server/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBody(s.config.Server.MaxBodyBytes))
	r.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           s.config.Server.RateLimit.Enabled,
		PerIP:             s.config.Server.RateLimit.PerIP,
		RequestsPerSecond: s.config.Server.RateLimit.RequestsPerSecond,
		Burst:             s.config.Server.RateLimit.Burst,
	}))
	r.Use(middleware.Auth(middleware.AuthConfig{
		Enabled:  s.config.Auth.Enabled,
		User:     s.config.Auth.User,
		Password: s.config.Auth.Password,
	}, "/health"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path)
	})

	r.Get("/", s.handleInfo)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Post("/recommend", s.handleRecommend)
	r.Post("/feedback", s.handleFeedback)
	r.Post("/safety/plan", s.handleCheckPlan)

	r.Get("/actions", s.handleActions)
	r.Get("/events", s.handleEvents)

	r.Route("/model", func(r chi.Router) {
		r.Get("/stats", s.handleModelStats)
		r.Post("/snapshot", s.handleSnapshot)
	})

	return r
}
