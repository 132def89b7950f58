package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gatekit/gatekit/internal/handler"
	"github.com/gatekit/gatekit/internal/model"
	"github.com/gatekit/gatekit/internal/server/middleware"
	"github.com/gatekit/gatekit/internal/service"
	"github.com/gatekit/gatekit/internal/store"
	"github.com/gatekit/gatekit/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableUI        bool
	AuthRatePerMin  int // rate limit for signup/login, per client IP
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            4000,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		EnableUI:        true,
		AuthRatePerMin:  30,
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the user
// store, and the authentication service, and serves both the JSON API and
// the embedded frontend pages.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, authSvc *service.AuthService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		authSvc: authSvc,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	authH := handler.NewAuthHandler(s.store, s.authSvc)
	userH := handler.NewUserHandler(s.store, s.authSvc)

	requireAuth := middleware.RequireAuth(s.authSvc)
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	credLimit := middleware.RateLimit(s.cfg.AuthRatePerMin)

	// --- API routes ---
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Credential endpoints are rate limited; identity endpoints are not.
			r.With(credLimit).Post("/signup", authH.Signup)
			r.With(credLimit).Post("/login", authH.Login)
			r.With(requireAuth).Get("/me", authH.Me)
			// Logout is stateless; the token is optional and unchecked.
			r.Post("/logout", authH.Logout)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(adminOnly)
			r.Get("/", userH.List)
			r.Patch("/{id}/activate", userH.Activate)
			r.Patch("/{id}/deactivate", userH.Deactivate)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", userH.GetProfile)
			r.Put("/", userH.UpdateProfile)
			r.Patch("/change-password", userH.ChangePassword)
		})
	})

	// --- Embedded frontend ---
	if s.cfg.EnableUI {
		s.mountUI(r)
	}

	s.router = r
}

// mountUI serves the embedded static pages. Each page route maps to one HTML
// file; shared assets live under /static/. The pages keep the token and a
// denormalized user summary in localStorage for routing hints only; every
// actual authorization decision happens server-side per request.
func (s *Server) mountUI(r chi.Router) {
	staticFS, err := fs.Sub(ui.Static, "static")
	if err != nil {
		s.logger.Error("failed to create sub filesystem for UI", "error", err)
		return
	}

	fileServer := http.FileServer(http.FS(staticFS))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	page := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f, err := staticFS.Open(name)
			if err != nil {
				http.Error(w, "UI not available", http.StatusNotFound)
				return
			}
			defer f.Close()
			stat, _ := f.Stat()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			http.ServeContent(w, r, name, stat.ModTime(), f.(io.ReadSeeker))
		}
	}

	r.Get("/", page("index.html"))
	r.Get("/login", page("login.html"))
	r.Get("/signup", page("signup.html"))
	r.Get("/profile", page("profile.html"))
	r.Get("/dashboard", page("dashboard.html"))
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the user store is
// reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.store.Close()
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
