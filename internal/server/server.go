package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/songzhibin97/deepdive/internal/configs"
	"github.com/songzhibin97/deepdive/internal/data"
	"github.com/songzhibin97/deepdive/internal/metrics"
	"github.com/songzhibin97/deepdive/internal/models"
	"github.com/songzhibin97/deepdive/internal/pipeline"
	"github.com/songzhibin97/deepdive/internal/report"
	"github.com/songzhibin97/deepdive/internal/showcase"
)

const (
	serviceName     = "DeepDive AI"
	serviceVersion  = "1.0.0"
	shutdownTimeout = 30 * time.Second
)

// Comparer runs multi-project comparisons on top of an analyzer.
type Comparer interface {
	CompareUsing(ctx context.Context, analyzer pipeline.Analyzer, names []string) (*models.ComparisonReport, error)
}

// Dispatcher schedules background report renders.
type Dispatcher interface {
	SubmitAnalysis(report models.AnalysisReport, raw string, explicit models.InputType)
	SubmitComparison(report models.ComparisonReport)
}

// RenderClaimer lets only one request queue the render of a cached analysis.
type RenderClaimer interface {
	ClaimRender(ctx context.Context, raw string, explicit models.InputType) bool
}

// Showcase lists the pre-analyzed sample projects.
type Showcase interface {
	Projects() []showcase.Project
}

// Deps are the collaborators behind the HTTP routes.
type Deps struct {
	Analyzer   pipeline.Analyzer
	Comparer   Comparer
	Renderer   report.Renderer
	Dispatcher Dispatcher
	Renders    RenderClaimer // nil renders every fresh result
	Showcase   Showcase
	Storage    data.ReportStorage
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

type Server struct {
	cfg    configs.ServerConfig
	router *chi.Mux
	server *http.Server
	deps   Deps
	logger *slog.Logger
}

func New(cfg configs.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.accessLog)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	s.router.Get("/", s.handleRoot)
	s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	s.router.Get("/reports/{filename}", s.handleDownloadReport)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/showcase", s.handleShowcase)
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{filename}", s.handleDownloadReport)
		r.Delete("/reports/{filename}", s.handleDeleteReport)
		r.Post("/generate-report", s.handleGenerateReport)

		// 分析请求耗时较长, 单独限时
		r.Group(func(r chi.Router) {
			if s.cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.cfg.RequestTimeout))
			}
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/compare", s.handleCompare)
			r.Get("/quick-score/{name}", s.handleQuickScore)
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down with a deadline.
func (s *Server) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "address", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		s.logger.Info("starting shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}
	return nil
}

// accessLog logs one line per request once the handler returns.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
