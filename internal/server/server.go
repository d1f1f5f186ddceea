package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"netboxdeploy/internal/history"
	"netboxdeploy/internal/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 30 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware
	RequestTimeout = 30 * time.Second

	// Rate limiting - requests per minute
	GlobalRateLimit = 60 // Global rate limit per minute
	RenderRateLimit = 20 // Render-specific rate limit per minute
)

// Server represents the HTTP server
type Server struct {
	Renderer *render.Renderer
	History  *history.History // nil disables render history
	Logger   *zap.Logger
	TestMode bool

	httpServer *http.Server
}

// NewServer creates a new server instance
func NewServer(renderer *render.Renderer, hist *history.History, logger *zap.Logger, testMode bool) *Server {
	return &Server{
		Renderer: renderer,
		History:  hist,
		Logger:   logger,
		TestMode: testMode,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(rememberPeer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int64("duration_ms", time.Since(start).Milliseconds()))
			}()

			next.ServeHTTP(ww, r)
		})
	})

	// Rate limiting middleware (only if not in test mode)
	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(GlobalRateLimit, s.Logger))
	}

	// Routes
	r.Get("/health", s.HandleHealth)
	r.Post("/validate", s.HandleValidate)
	r.Get("/renders/{deployment}", s.HandleRenders)

	// Render route with stricter rate limit
	if !s.TestMode {
		r.With(NewRateLimitMiddleware(RenderRateLimit, s.Logger)).Post("/render/{deployment}", s.HandleRender)
	} else {
		r.Post("/render/{deployment}", s.HandleRender)
	}

	return r
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("starting server", zap.String("addr", addr))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Close history database connection
	if s.History != nil {
		err = multierr.Append(err, s.History.Close())
	}
	return err
}
