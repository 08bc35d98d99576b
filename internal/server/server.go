// Package server exposes the gazette HTTP API: newsletters, accounts, and
// billing.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gazette/internal/auth"
	"gazette/internal/billing"
	"gazette/internal/config"
	"gazette/internal/logger"
	"gazette/internal/persistence"
)

// Server represents the HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	db         persistence.Database
	billing    billing.Provider
	tokens     *auth.TokenIssuer
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance.
func New(db persistence.Database, billingProvider billing.Provider, tokens *auth.TokenIssuer, cfg config.Server) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		db:      db,
		billing: billingProvider,
		tokens:  tokens,
		config:  cfg,
		log:     logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.Duration(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.WriteTimeout, 30*time.Second),
	}

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(securityHeaders)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Stripe-Signature"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/newsletters", func(r chi.Router) {
		r.Get("/", s.handleListNewsletters)
		r.Get("/{id}", s.handleGetNewsletter)
		r.Post("/", s.handleCreateNewsletter)
	})

	s.router.Post("/register", s.handleRegister)
	s.router.Post("/login", s.handleLogin)
	s.router.Post("/stripe-webhook", s.handleStripeWebhook)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/me", s.handleMe)
		r.Delete("/user", s.handleDeleteUser)
		r.Post("/subscription", s.handleCreateSubscription)
	})
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
