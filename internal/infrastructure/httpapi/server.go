// Package httpapi exposes the digest pipeline over HTTP for external
// schedulers and operators.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/schedule"
	"MorningDigest/internal/usecase"
)

// Runner is the pipeline surface the handlers drive.
type Runner interface {
	Run(ctx context.Context, req usecase.RunRequest) (usecase.RunReport, error)
	Regenerate(ctx context.Context, groupID string) (*domain.DigestIssue, error)
}

// GroupLister reads keyword groups for display.
type GroupLister interface {
	ListKeywordGroups(ctx context.Context) ([]domain.KeywordGroup, error)
}

// Options configure the server.
type Options struct {
	Runner            Runner
	Groups            GroupLister
	Evaluator         *schedule.Evaluator
	CronSecret        string
	ReadHeaderTimeout time.Duration
	Logger            *slog.Logger
}

// Server owns the echo instance and its routes.
type Server struct {
	echo       *echo.Echo
	runner     Runner
	groups     GroupLister
	evaluator  *schedule.Evaluator
	cronSecret string
	logger     *slog.Logger
}

// New builds the server and registers all routes.
func New(opts Options) *Server {
	s := &Server{
		echo:       echo.New(),
		runner:     opts.Runner,
		groups:     opts.Groups,
		evaluator:  opts.Evaluator,
		cronSecret: opts.CronSecret,
		logger:     opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.evaluator == nil {
		s.evaluator = schedule.NewEvaluator(nil)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.Server.ReadHeaderTimeout = opts.ReadHeaderTimeout

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				s.logger.Info("request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				s.logger.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/digests/run", s.handleRunPost)
	api.GET("/digests/run", s.handleRunGet)
	api.POST("/cron/trigger", s.handleCronTrigger, CronSecret(s.cronSecret))
	api.GET("/groups", s.handleListGroups)
	api.POST("/groups/:id/regenerate", s.handleRegenerate)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting http server", "address", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
