// Package server exposes the scraper and the query log over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/querylog"
	"ecourts-backend/lib/scrapers/ecourts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const RequestIdHeader = "X-Request-Id"

const (
	report_server_request = "server.request"
	report_server_audit   = "server.audit"
)

type Options struct {
	Scraper *ecourts.Scraper
	Logs    querylog.Store
	// Registry receives the server's metrics and backs /metrics, a fresh
	// registry is created when nil.
	Registry  *prometheus.Registry
	Telemetry telemetry.API
}

type Server struct {
	scraper  *ecourts.Scraper
	logs     querylog.Store
	tel      telemetry.API
	validate *validator.Validate
	registry *prometheus.Registry
	metrics  *metrics
	router   *chi.Mux
}

func New(opts Options) *Server {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	s := &Server{
		scraper:  opts.Scraper,
		logs:     opts.Logs,
		tel:      telemetry.NewScopedAPI("ecourts_server", opts.Telemetry),
		validate: newValidator(),
		registry: registry,
		metrics:  newMetrics(registry),
		router:   chi.NewRouter(),
	}
	s.mount()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIdHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIdHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.tel.ReportDebug(
			report_server_request,
			"id", w.Header().Get(RequestIdHeader),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

func (s *Server) mount() {
	r := s.router
	r.Use(requestId)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIdHeader, "Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.middleware)
	r.Use(s.logRequests)

	r.Get("/", s.wrap("root", s.root))
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/get-states", s.wrap("get-states", s.getStates))
		r.Post("/get-districts", s.wrap("get-districts", s.getDistricts))
		r.Post("/get-court-complexes", s.wrap("get-court-complexes", s.getCourtComplexes))
		r.Post("/get-case-types", s.wrap("get-case-types", s.getCaseTypes))
		r.Get("/health", s.wrap("health", s.health))

		r.Get("/captcha-url", s.wrap("captcha-url", s.captchaUrl))
		r.Get("/captcha-image", s.wrap("captcha-image", s.captchaImage))

		r.Post("/submit-case", s.wrap("submit-case", s.submitCase))
		r.Post("/get-case-details", s.wrap("get-case-details", s.getCaseDetails))
		r.Post("/get-order-pdf", s.wrap("get-order-pdf", s.getOrderPdf))

		r.Post("/clear-cache", s.wrap("clear-cache", s.clearCache))
		r.Post("/warm-session", s.wrap("warm-session", s.warmSession))

		r.Get("/query-logs", s.wrap("query-logs", s.queryLogs))
		r.Get("/stats", s.wrap("stats", s.stats))
		r.Post("/reset-logs", s.wrap("reset-logs", s.resetLogs))
	})
}

// Serve listens on `addr` (HTTP/1.1 and h2c) until ctx is done, then shuts
// down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
