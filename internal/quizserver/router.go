package quizserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quizmaster/quizmaster/internal/rbac"
)

type RouterOptions struct {
	CORSOrigins []string
	// RequestLog enables chi's request logger.
	RequestLog bool
}

// NewRouter mounts the attempt endpoints behind bearer authentication.
func NewRouter(s *Server, auth *AuthService, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if opts.RequestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Timeout(30 * time.Second))

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(JWTMiddleware(auth))
		pr.Route("/api/user/attempt_quiz/{quizID}", func(ar chi.Router) {
			ar.With(rbac.Require("attempt:take")).Get("/attempt", s.GetAttemptHandler())
			ar.With(rbac.Require("attempt:submit")).Post("/attempt", s.SubmitAttemptHandler())
			ar.With(rbac.RequireAny("scores:view-own", "scores:view-all")).
				Get("/scores", s.ListScoresHandler(false))
		})
		pr.With(rbac.Require("scores:view-all")).
			Get("/api/admin/attempt_quiz/{quizID}/scores", s.ListScoresHandler(true))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	return r
}
