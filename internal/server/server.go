// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the "wiring" layer: it decides which URL maps to which handler,
// which middleware runs where, and how the server starts and stops.
// Keeping it out of main.go means tests can build the full app with
// Handler() and drive it through httptest without opening a port.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB ─→ SnippetService ─→ SnippetHandler, APIHandler
//	                         └─→ AuthService ───→ PageHandler, AuthHandler, APIHandler
//
// This is the "composition root" pattern: all dependencies are wired in
// one place (build), never looked up globally.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/snippetbin/internal/auth"
	"github.com/sakif/snippetbin/internal/config"
	"github.com/sakif/snippetbin/internal/handler"
	"github.com/sakif/snippetbin/internal/highlight"
	"github.com/sakif/snippetbin/internal/middleware"
	sqliteRepo "github.com/sakif/snippetbin/internal/repository/sqlite"
	"github.com/sakif/snippetbin/internal/service"
	"github.com/sakif/snippetbin/web"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it after the HTTP
// server has drained, so no request ever sees a closed pool.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// New opens the database and builds the router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// GitHub sign-in is optional. Without credentials the routes are simply
	// not registered.
	var github handler.GitHubExchanger
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}

	s, err := build(cfg, logger, db, github)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// build wires every layer on top of an open database.
func build(cfg *config.Config, logger *slog.Logger, db *sqliteRepo.DB, github handler.GitHubExchanger) (*Server, error) {
	// === AUTH ===
	tokens, err := auth.NewTokenService(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)

	// === SERVICES ===
	// *sqlite.DB implements both repository interfaces.
	snippetService := service.NewSnippetService(db, logger)
	authService := service.NewAuthService(db, tokens, passwords, logger)

	// === HANDLERS ===
	renderer, err := handler.NewRenderer(web.Files, handler.SiteOptions{
		GitHubEnabled:  github != nil,
		AllowAnonymous: cfg.Auth.AllowAnonymousSnippets,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger),
	}

	secure := cfg.Auth.SecureCookies
	pages := handler.NewPageHandler(authService, renderer, secure, logger)
	snippets := handler.NewSnippetHandler(snippetService, highlight.New(""), renderer, logger)
	api := handler.NewAPIHandler(snippetService, authService, logger)
	health := handler.NewHealthHandler(db, logger)

	var githubAuth *handler.AuthHandler
	if github != nil {
		githubAuth = handler.NewAuthHandler(github, authService, renderer, secure, logger)
	}

	if err := s.setupRoutes(tokens, pages, snippets, api, health, githubAuth); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET       /                        → home (login form or greeting)
//	POST      /login                   → password login        [rate limited]
//	GET,POST  /logout                  → clear session
//	GET,POST  /register                → create account        [POST rate limited]
//	GET,POST  /snippets/add            → create snippet        [auth unless anonymous allowed]
//	GET       /snippets/list           → public snippets
//	GET       /snippets/mine           → caller's snippets     [auth]
//	GET       /snippets/{id}           → view snippet
//	GET       /snippets/{id}/raw       → plain text
//	GET,POST  /snippets/{id}/edit      → edit                  [auth, owner]
//	POST      /snippets/{id}/delete    → delete                [auth, owner]
//	GET       /auth/github/login       → OAuth redirect        [if configured]
//	GET       /auth/github/callback    → OAuth callback        [if configured]
//	GET       /api/snippets, /api/snippets/{id}, /api/me → JSON
//	GET       /static/*, /healthz
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: unique ID per request, for tracing
//  2. RealIP: client IP from proxy headers (the rate limiter keys on it)
//  3. LoadSession: puts the caller's identity into the context
//  4. Logger: logs each request, including request and user IDs
//  5. Recoverer: turns panics into 500s instead of crashing
func (s *Server) setupRoutes(
	tokens *auth.TokenService,
	pages *handler.PageHandler,
	snippets *handler.SnippetHandler,
	api *handler.APIHandler,
	health *handler.HealthHandler,
	githubAuth *handler.AuthHandler,
) error {
	r := s.router

	// === Global Middleware ===
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(auth.LoadSession(tokens))
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)

	// === Static Files ===
	static, err := fs.Sub(web.Files, "static")
	if err != nil {
		return fmt.Errorf("static files: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/healthz", health.HandleHealth)

	// === Pages & Accounts ===
	r.Get("/", pages.HandleHome)
	r.With(s.limiter.Middleware).Post("/login", pages.HandleLogin)
	r.Get("/logout", pages.HandleLogout)
	r.Post("/logout", pages.HandleLogout)
	r.Get("/register", pages.HandleRegisterForm)
	r.With(s.limiter.Middleware).Post("/register", pages.HandleRegister)

	if githubAuth != nil {
		r.Get("/auth/github/login", githubAuth.HandleGitHubLogin)
		r.Get("/auth/github/callback", githubAuth.HandleGitHubCallback)
	}

	// === Snippets ===
	r.Route("/snippets", func(r chi.Router) {
		r.Get("/list", snippets.HandleList)

		// Anonymous creation can be switched off; then /add needs a login
		// like every other write.
		r.Group(func(r chi.Router) {
			if !s.config.Auth.AllowAnonymousSnippets {
				r.Use(auth.RequireAuth)
			}
			r.Get("/add", snippets.HandleAddForm)
			r.Post("/add", snippets.HandleAdd)
		})

		r.Get("/{id}", snippets.HandleDetail)
		r.Get("/{id}/raw", snippets.HandleRaw)

		// Everything below needs a logged-in user; ownership is checked
		// by the service.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/mine", snippets.HandleMine)
			r.Get("/{id}/edit", snippets.HandleEditForm)
			r.Post("/{id}/edit", snippets.HandleEdit)
			r.Post("/{id}/delete", snippets.HandleDelete)
		})
	})

	// === JSON API ===
	r.Route("/api", func(r chi.Router) {
		r.Get("/snippets", api.HandleListSnippets)
		r.Get("/snippets/{id}", api.HandleGetSnippet)
		r.Get("/me", api.HandleMe)
	})

	return nil
}

// Handler returns the fully wired router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it itself on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Stop the rate limiter janitor and close the database
//
// The deferred calls run in reverse order, so the database is closed last.
func (s *Server) Start() error {
	defer s.db.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go s.limiter.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
