package httpadapter

import (
	"context"
	"net/http"
	"time"

	"crudserver/internal/core/service/resource"
	"crudserver/internal/pkg/metrics"
	"crudserver/internal/pkg/ratelimit"

	"github.com/go-chi/chi/v5"
)

const (
	MaxRequestSize = 1024 * 1024 // 1MB max request size
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Backend              string
	Pinger               Pinger
	ExposeInternalErrors bool
	Metrics              *metrics.Metrics
	CORSAllowedOrigins   []string
	Limiter              ratelimit.Limiter
}

type Handler struct {
	userService    resource.UserService
	commentService resource.CommentService
	opts           Options
	startedAt      time.Time
}

func NewHandler(users resource.UserService, comments resource.CommentService, opts Options) *Handler {
	return &Handler{
		userService:    users,
		commentService: comments,
		opts:           opts,
		startedAt:      time.Now(),
	}
}

func (h *Handler) SetupRoutes() http.Handler {
	router := chi.NewRouter()

	router.Use(WithRequestID)
	router.Use(WithLogging)
	router.Use(WithRecover)
	if h.opts.Metrics != nil {
		router.Use(h.opts.Metrics.Middleware)
	}
	router.Use(WithSecurityHeaders)
	router.Use(WithCORS(h.opts.CORSAllowedOrigins))

	router.NotFound(h.HandleNotFound)
	router.MethodNotAllowed(h.HandleMethodNotAllowed)

	router.Get("/", h.HandleIndex)
	router.Get("/health", h.HandleHealth)
	if h.opts.Metrics != nil {
		router.Handle("/metrics", h.opts.Metrics.Handler())
	}

	// the API is served at the root and under /api
	router.Group(func(r chi.Router) {
		if h.opts.Limiter != nil {
			r.Use(WithRateLimit(RateLimitConfig{Limiter: h.opts.Limiter, Whitelist: []string{"/api/health"}}))
		}

		h.apiRoutes(r)
		r.Route("/api", func(r chi.Router) {
			r.Get("/", h.HandleIndex)
			r.Get("/health", h.HandleHealth)
			h.apiRoutes(r)
		})
	})

	return router
}

func (h *Handler) apiRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.HandleListUsers)
		r.With(RequireURLParams("term")).Get("/search/{term}", h.HandleSearchUsers)
		r.With(RequestSizeLimit(MaxRequestSize)).Post("/", h.HandleCreateUser)

		r.Route("/{userID}", func(r chi.Router) {
			r.Use(RequireURLParams("userID"))

			r.Get("/", h.HandleGetUser)
			r.With(RequestSizeLimit(MaxRequestSize)).Put("/", h.HandleUpdateUser)
			r.Delete("/", h.HandleDeleteUser)

			r.Route("/comments", func(r chi.Router) {
				r.Get("/", h.HandleListComments)
				r.With(RequestSizeLimit(MaxRequestSize)).Post("/", h.HandleCreateComment)

				r.Route("/{commentID}", func(r chi.Router) {
					r.Use(RequireURLParams("commentID"))

					// write operations will have size limits
					r.With(RequestSizeLimit(MaxRequestSize)).Put("/", h.HandleUpdateComment)
					r.Delete("/", h.HandleDeleteComment)
				})
			})
		})
	})
}
