// internal/api/server.go

// Package api exposes the recipe engine and store over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/valpere/recipevault/internal/monitoring"
	"github.com/valpere/recipevault/internal/scraper"
	"github.com/valpere/recipevault/internal/storage"
	"github.com/valpere/recipevault/internal/utils"
)

// Options tune the HTTP surface.
type Options struct {
	CORSOrigins  []string
	RateLimit    float64
	RateBurst    int
	MaxBodyBytes int64
	MetricsPath  string

	// ScrapeTimeout bounds fetching in scrape requests so a failure can
	// still be reported before the server's write timeout. Zero disables it.
	ScrapeTimeout time.Duration
}

// Server wires the engine, the store and the monitoring pieces to routes.
type Server struct {
	engine  *scraper.Engine
	store   storage.Store
	metrics *monitoring.Metrics
	health  *monitoring.HealthManager
	opts    Options
	logger  zerolog.Logger
	router  *mux.Router
	handler http.Handler
}

// NewServer builds the router. metrics and health may be nil.
func NewServer(engine *scraper.Engine, store storage.Store, metrics *monitoring.Metrics, health *monitoring.HealthManager, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if health == nil {
		health = monitoring.NewHealthManager(0)
	}

	s := &Server{
		engine:  engine,
		store:   store,
		metrics: metrics,
		health:  health,
		opts:    opts,
		logger:  utils.NewComponentLogger("api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := mux.NewRouter()
	// recipe ids are URL-escaped URLs and may contain %2F
	r.UseEncodedPath()
	r.Use(s.instrumentMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle(s.opts.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/scrape").Subrouter()
	api.HandleFunc("", s.handleScrape).Methods(http.MethodPost)
	api.HandleFunc("/preview", s.handlePreview).Methods(http.MethodPost)
	api.HandleFunc("/recipes", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/recipes/{id}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/save", s.handleSave).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	s.router = r

	var h http.Handler = r
	h = rateLimitMiddleware(s.opts.RateLimit, s.opts.RateBurst)(h)
	h = corsMiddleware(s.opts.CORSOrigins)(h)
	h = s.recoveryMiddleware(h)
	s.handler = h
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Router returns the bare router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// HTTPServer wraps Handler in an http.Server with the given timeouts.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * writeTimeout,
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
