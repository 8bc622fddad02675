// Package target implements the users API that load runs are aimed at.
package target

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Defaults for the target server.
const (
	DefaultAddr      = ":3000"
	DefaultRateLimit = 100000
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address
	Addr string

	// RateLimit is the accepted requests per second across all clients
	// (0 = unlimited)
	RateLimit float64

	// Burst is the limiter bucket size; defaults to RateLimit
	Burst int

	Logger logrus.FieldLogger
}

// Server is the users API.
type Server struct {
	cfg     Config
	store   *MemoryStore
	metrics *Metrics
	router  chi.Router
	log     logrus.FieldLogger
}

// New builds a server. Nothing listens until ListenAndServe.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		cfg.Logger = l
	}
	if cfg.RateLimit > 0 && cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RateLimit)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}

	s := &Server{
		cfg:     cfg,
		store:   NewMemoryStore(),
		metrics: NewMetrics(),
		log:     cfg.Logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(recoverer(s.log))
	r.Use(requestLogger(s.log))
	r.Use(s.metrics.Middleware)

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.Burst)))
		}
		r.Get("/health", healthHandler)
		(&userHandler{store: s.store}).mount(r)
	})

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the backing user store.
func (s *Server) Store() *MemoryStore {
	return s.store
}

// Metrics returns the Prometheus collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.WithField("addr", ln.Addr().String()).Info("target server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("target server stopped")
	return nil
}
