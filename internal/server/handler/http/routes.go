package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atinyakov/GophTally/internal/middleware"
)

// Handlers groups the route handlers.
type Handlers struct {
	Auth      *AuthHandler
	Counters  *CounterHandler
	Labels    *LabelHandler
	Subscribe *SubscribeHandler
}

// RouterOptions configures the cross-cutting middleware.
type RouterOptions struct {
	// Verifier checks bearer tokens on protected routes.
	Verifier middleware.TokenVerifier
	// AuthLimiter throttles the auth endpoints per client IP. Nil disables throttling.
	AuthLimiter middleware.Limiter
	// AllowedOrigins lists the CORS origins; empty allows any.
	AllowedOrigins []string
}

// NewRouter constructs the document store API.
//
// Middleware chain (applied in order):
//  1. RequestID, RealIP, Recoverer
//  2. WithRequestLogging(logger)
//  3. CORS
//  4. AllowContentType("application/json") on request bodies
//  5. TokenAuth, which lets the public auth endpoints through
func NewRouter(h Handlers, opts RouterOptions, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.TokenAuth(opts.Verifier))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if opts.AuthLimiter != nil {
					r.Use(middleware.RateLimit(opts.AuthLimiter))
				}
				r.Post("/signup", h.Auth.SignUp)
				r.Post("/signin", h.Auth.SignIn)
				r.Post("/provider/{name}", h.Auth.Provider)
				r.Post("/reset-password", h.Auth.ResetPassword)
			})
			r.Post("/signout", h.Auth.SignOut)
			r.Get("/me", h.Auth.Me)
		})

		r.Route("/counters", func(r chi.Router) {
			r.Get("/", h.Counters.List)
			r.Post("/", h.Counters.Create)
			r.Put("/", h.Counters.Replace)
			r.Post("/batch", h.Counters.Batch)
			r.Patch("/{id}", h.Counters.Update)
			r.Delete("/{id}", h.Counters.Delete)
			r.Post("/{id}/increment", h.Counters.Increment)
		})

		r.Route("/labels", func(r chi.Router) {
			r.Get("/", h.Labels.List)
			r.Post("/", h.Labels.Create)
			r.Patch("/{id}", h.Labels.Update)
			r.Delete("/{id}", h.Labels.Delete)
		})

		r.Get("/preferences", h.Auth.GetPreferences)
		r.Put("/preferences", h.Auth.UpdatePreferences)

		r.Get("/subscribe/{collection}", h.Subscribe.Subscribe)
	})

	return r
}
