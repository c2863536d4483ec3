// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the wiring layer: it opens the store, builds the services
// and handlers on top of it, and decides which middleware runs on which
// routes. main.go (and the Lambda entrypoint) only load configuration and
// call New.
//
// DEPENDENCY INJECTION FLOW:
//
//	config → sqlstore.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/config"
	"github.com/sakif/life-tracker/internal/handler"
	"github.com/sakif/life-tracker/internal/idempotency"
	"github.com/sakif/life-tracker/internal/middleware"
	"github.com/sakif/life-tracker/internal/repository/sqlstore"
	"github.com/sakif/life-tracker/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed by Close, or by Start on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqlstore.DB
	idem   *idempotency.Service
}

// New opens the database named by cfg and builds the router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, for tests and for the Lambda adapter.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Close() error {
	return s.db.Close()
}

// PurgeExpired deletes idempotency keys past their TTL once. The Lambda
// entrypoint calls it on cold start since it has no background sweeper.
func (s *Server) PurgeExpired(ctx context.Context) error {
	return s.idem.Sweep(ctx)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE (under server.api_prefix, default /api):
//
//	GET    /health                 → store health (public)
//	POST   /auth/register          → create account (public)
//	POST   /auth/login             → sign in (public)
//	GET    /auth/github/login      → OAuth redirect (public, if configured)
//	GET    /auth/github/callback   → OAuth callback (public, if configured)
//	GET    /user/me                → profile
//	PUT    /user/me                → update profile
//	POST   /reset-data             → wipe all records (secret-guarded)
//	GET    /data                   → snapshot of every collection
//	GET    /analytics              → activity report
//	GET    /export                 → snapshot download
//	GET    /export/expenses.csv    → expenses as CSV
//	GET    /export/expenses.xlsx   → expenses as a spreadsheet
//	GET    /{collection}           → list
//	POST   /{collection}           → create (Idempotency-Key aware)
//	GET    /{collection}/{id}      → get one
//	PUT    /{collection}/{id}      → replace
//	DELETE /{collection}/{id}      → delete
//
// MIDDLEWARE ORDER MATTERS:
// CORS runs before routing so preflights never need a token. Everything
// but the public routes sits behind RequireAuth, including unmatched
// paths, so an anonymous caller cannot discover which routes exist.
func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)

	// === Services ===
	users := s.db.Users()
	records := s.db.Records()

	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	userService := service.NewUserService(users, records, passwords, s.logger)
	recordService := service.NewRecordService(records, cfg.Points.PerCompletion, s.logger)
	syncService := service.NewSyncService(records, s.logger)
	analyticsService := service.NewAnalyticsService(syncService, userService)
	s.idem = idempotency.New(s.db.Idempotency(), cfg.Idempotency.TTL, s.logger)

	// === Handlers ===
	resp := handler.NewResponder(s.logger, cfg.Server.ExposeErrors)

	var github handler.OAuthProvider
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}
	authHandler := handler.NewAuthHandler(authService, github, cfg.GitHub.RedirectURL, resp, s.logger)
	userHandler := handler.NewUserHandler(userService, resp)
	collectionHandler := handler.NewCollectionHandler(recordService, resp)
	syncHandler := handler.NewSyncHandler(syncService, resp)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, resp)
	exportHandler := handler.NewExportHandler(syncService, resp)
	healthHandler := handler.NewHealthHandler(s.db, resp)

	requireAuth := auth.RequireAuth(tokens)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Recoverer(s.logger, resp))
	s.router.Use(chimiddleware.StripSlashes)
	s.router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	if cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	}
	s.router.Use(chimiddleware.RequestSize(cfg.Server.MaxBodyBytes))

	s.router.NotFound(resp.NotFound)
	s.router.MethodNotAllowed(resp.MethodNotAllowed)

	api := func(r chi.Router) {
		r.NotFound(requireAuth(http.HandlerFunc(resp.NotFound)).ServeHTTP)
		r.MethodNotAllowed(resp.MethodNotAllowed)

		// === Public ===
		r.Get("/health", healthHandler.HandleHealth)
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		// === Protected ===
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.TagUser)

			r.Get("/user/me", userHandler.HandleGetMe)
			r.Put("/user/me", userHandler.HandleUpdateMe)
			r.Post("/reset-data", userHandler.HandleResetData)

			r.Get("/data", syncHandler.HandleSnapshot)
			r.Get("/analytics", analyticsHandler.HandleAnalytics)

			r.Get("/export", exportHandler.HandleExportJSON)
			r.Get("/export/expenses.csv", exportHandler.HandleExpensesCSV)
			r.Get("/export/expenses.xlsx", exportHandler.HandleExpensesXLSX)

			r.Get("/{collection}", collectionHandler.HandleList)
			r.With(s.idem.Middleware).Post("/{collection}", collectionHandler.HandleCreate)
			r.Get("/{collection}/{id}", collectionHandler.HandleGet)
			r.Put("/{collection}/{id}", collectionHandler.HandleReplace)
			r.Delete("/{collection}/{id}", collectionHandler.HandleDelete)
		})
	}

	if prefix := cfg.Server.APIPrefix; prefix != "" {
		s.router.Route(prefix, api)
	} else {
		api(s.router)
	}

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection
//
// While running, expired idempotency keys are purged every
// idempotency.purge_interval.
func (s *Server) Start() error {
	defer s.db.Close()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if interval := s.config.Idempotency.PurgeInterval; interval > 0 {
		go s.idem.RunSweeper(sweepCtx, interval)
	}

	srv := &http.Server{
		Addr:              s.config.Server.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Bodies can carry inline images, so reads get the request timeout.
		ReadTimeout:  s.config.Server.RequestTimeout + 5*time.Second,
		WriteTimeout: s.config.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("address", s.config.Server.Address),
			slog.String("apiPrefix", s.config.Server.APIPrefix),
			slog.String("database", s.db.Driver()),
			slog.Bool("github", s.config.GitHub.Enabled()),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
