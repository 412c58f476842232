package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/auth"
	"github.com/BorisDmv/blog-cms/internal/logging"
	appmiddleware "github.com/BorisDmv/blog-cms/internal/middleware"
	"github.com/BorisDmv/blog-cms/internal/posts"
)

type RouterConfig struct {
	Logger *logrus.Logger
	Posts  *posts.Service
	Auth   *auth.Service

	// Store and Search back /health. Search is nil when disabled.
	Store  Pinger
	Search Pinger

	CorsAllowedOrigins []string
	// AdminToken guards /api/admin. The routes are not mounted without it.
	AdminToken       string
	PostsRequireAuth bool
	LoginLimiter     *appmiddleware.RateLimiter
}

func NewRouter(cfg RouterConfig) http.Handler {
	postsHandler := NewPostsHandler(cfg.Posts, logging.Component(cfg.Logger, "http.posts"))
	authHandler := NewAuthHandler(cfg.Auth, logging.Component(cfg.Logger, "http.auth"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	r.Get("/health", Health(cfg.Store, cfg.Search))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			if cfg.LoginLimiter != nil {
				r.With(cfg.LoginLimiter.Limit).Post("/login", authHandler.Login)
			} else {
				r.Post("/login", authHandler.Login)
			}
			r.With(appmiddleware.JWT(cfg.Auth)).Get("/me", authHandler.Me)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postsHandler.List)
			r.Get("/search", postsHandler.Search)
			r.Get("/slug/{slug}", postsHandler.GetBySlug)
			r.Get("/{id}", postsHandler.GetByID)

			r.Group(func(r chi.Router) {
				if cfg.PostsRequireAuth {
					r.Use(appmiddleware.JWT(cfg.Auth))
				}
				r.Post("/", postsHandler.Create)
				r.Put("/{id}", postsHandler.Update)
				r.Delete("/{id}", postsHandler.Delete)
			})
		})

		if cfg.AdminToken != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(appmiddleware.StaticToken(cfg.AdminToken))
				r.Post("/reindex", postsHandler.Reindex)
			})
		}
	})

	return r
}
