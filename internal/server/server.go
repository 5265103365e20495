// Package server provides HTTP server initialization and lifecycle management
// for the Recall API.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/config"
	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/logger"
	"github.com/scrypster/recall/web/handlers"
)

// Deps are the components the server exposes. Store and Memory are
// required; the rest are built from Store when nil.
type Deps struct {
	Store    storage.Store
	Memory   *engine.MemoryEngine
	Merges   *engine.MergePipeline
	Identity *engine.IdentityBuilder
	Noise    *engine.NoiseFilter
	Registry *prometheus.Registry
	Logger   *zap.Logger
	Version  string
}

// dbGetter is implemented by SQL-backed stores.
type dbGetter interface {
	DB() *sql.DB
}

// Server is a running HTTP server.
type Server struct {
	addr string
	hub  *handlers.WebSocketHub
	done chan struct{}
}

// Addr returns the address being listened on (useful for testing with port 0).
func (s *Server) Addr() string { return s.addr }

// Hub returns the websocket hub the engine publishes to.
func (s *Server) Hub() *handlers.WebSocketHub { return s.hub }

// Done is closed once shutdown has finished.
func (s *Server) Done() <-chan struct{} { return s.done }

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// withDefaults fills the optional components from Store.
func (d Deps) withDefaults() (Deps, error) {
	if d.Store == nil || d.Memory == nil {
		return d, errors.New("server: store and memory engine are required")
	}
	d.Logger = logger.OrNop(d.Logger)
	if d.Noise == nil {
		noise, err := engine.NewNoiseFilter(nil)
		if err != nil {
			return d, fmt.Errorf("server: noise filter: %w", err)
		}
		d.Noise = noise
	}
	if d.Merges == nil {
		d.Merges = engine.NewMergePipeline(d.Store, nil, d.Logger)
	}
	if d.Identity == nil {
		d.Identity = engine.NewIdentityBuilder(d.Store, nil, d.Logger)
	}
	return d, nil
}

// NewRouter builds the full route tree. hub may be nil, which leaves /ws
// unrouted.
func NewRouter(cfg *config.Config, deps Deps, hub *handlers.WebSocketHub) (chi.Router, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	log := deps.Logger

	api := &handlers.API{
		Memories: handlers.NewMemoryHandlers(deps.Memory, log),
		Entities: handlers.NewEntityHandler(deps.Store, engine.NewGraphService(deps.Store), deps.Noise, log),
		Merges:   handlers.NewMergeHandlers(deps.Merges, deps.Store, cfg.Engine.AutoAcceptHighConfidence, log),
		Identity: handlers.NewIdentityHandler(deps.Identity, log),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", healthHandler(deps))
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	if hub != nil {
		r.Handle("/ws", hub)
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			r.Use(handlers.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst).Middleware)
		}
		r.Use(handlers.RequireAuth(cfg))
		r.Mount("/", api.Routes())
	})
	return r, nil
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if g, ok := deps.Store.(dbGetter); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := g.DB().PingContext(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status, "version": deps.Version})
	}
}

// Start builds the router, listens on cfg.Server.Addr() and serves until ctx
// is cancelled. Shutdown drains in-flight requests and pending memory
// refreshes within cfg.Server.ShutdownTimeout.
func Start(ctx context.Context, cfg *config.Config, deps Deps) (*Server, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	log := deps.Logger

	hub := handlers.NewWebSocketHub(cfg.Security.AllowedOrigins, log)
	router, err := NewRouter(cfg, deps, hub)
	if err != nil {
		return nil, err
	}

	deps.Memory.SetPublisher(hub)
	deps.Merges.SetPublisher(hub)
	deps.Identity.SetPublisher(hub)

	listener, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}

	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s := &Server{
		addr: listener.Addr().String(),
		hub:  hub,
		done: make(chan struct{}),
	}

	go hub.Run()
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
	}()
	log.Info("server listening", zap.String("addr", s.addr))

	go func() {
		defer close(s.done)
		<-ctx.Done()

		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown error", zap.Error(err))
		}
		if err := deps.Memory.Shutdown(shutdownCtx); err != nil {
			log.Warn("memory engine shutdown error", zap.Error(err))
		}
		hub.Stop()
		log.Info("server stopped")
	}()

	return s, nil
}
