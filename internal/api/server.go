// Package api exposes the estimate engine over HTTP: document submission,
// schema discovery and health. One estimate runs at a time; a second
// submission while a session is live is refused, not queued.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/calcforge/calcforge/internal/app"
	"github.com/calcforge/calcforge/internal/configurator"
	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/estimate"
	"github.com/calcforge/calcforge/internal/input"
	"github.com/calcforge/calcforge/internal/schema"
)

// Estimator runs one full estimate for a loaded document.
type Estimator interface {
	RunEstimate(ctx context.Context, doc *input.Document, opts app.RunOptions) (*estimate.Report, error)
}

// Config holds the server's knobs.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	MaxRequestBytes int64
	// RunTimeout bounds one estimate run end to end. Browser automation is
	// slow; the default is generous.
	RunTimeout time.Duration
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		MaxRequestBytes: 10 << 20,
		RunTimeout:      20 * time.Minute,
	}
}

// Server is the HTTP front end.
type Server struct {
	estimator     Estimator
	schemas       *schema.Registry
	configurators *configurator.Registry
	cfg           Config

	// running guards the single live session; TryLock instead of Lock so a
	// busy engine answers immediately.
	running sync.Mutex
}

// NewServer wires the HTTP front end over an estimator and the two
// registries backing schema discovery.
func NewServer(estimator Estimator, schemas *schema.Registry, configurators *configurator.Registry, cfg Config) *Server {
	return &Server{
		estimator:     estimator,
		schemas:       schemas,
		configurators: configurators,
		cfg:           cfg,
	}
}

// Handler builds the route tree. Exposed separately from Serve so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/services", s.handleListServices)
		r.Get("/services/{serviceType}", s.handleDescribeService)
		r.Post("/estimate", s.handleEstimate)
	})
	return r
}

// Serve runs the server until ctx is cancelled, then drains in-flight
// requests before returning.
func (s *Server) Serve(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	srv := &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening.", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server.")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// logRequests emits one structured line per request, carrying the chi
// request ID so log lines and responses correlate.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := ctxlog.FromContext(r.Context()).With("request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctxlog.WithLogger(r.Context(), logger)))

		logger.Info("Request handled.",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
