package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/valpere/transbench/internal"
	"github.com/valpere/transbench/internal/benchmark"
	"github.com/valpere/transbench/internal/comparator"
	"github.com/valpere/transbench/internal/config"
	"github.com/valpere/transbench/internal/orchestrator"
	"github.com/valpere/transbench/internal/translator"
)

// Dispatcher is satisfied by *orchestrator.Orchestrator.
type Dispatcher interface {
	Compare(ctx context.Context, req orchestrator.Request) (*comparator.Report, error)
	TranslateOne(ctx context.Context, backendID string, req orchestrator.Request) (translator.Result, error)
}

// Catalog is satisfied by *registry.Registry.
type Catalog interface {
	List() []translator.Descriptor
	Readiness() map[string]translator.InitState
	Release() []string
}

type BenchmarkRunner interface {
	Run(ctx context.Context, req benchmark.Request) (*internal.BenchmarkRun, error)
}

// Stats is satisfied by *metrics.Stats.
type Stats interface {
	Uptime() time.Duration
	Translations() int64
	Handler() http.Handler
}

type Deps struct {
	Dispatcher Dispatcher
	Catalog    Catalog
	Benchmarks BenchmarkRunner
	Stats      Stats
	// Presets maps a compare preset name to its backend ids.
	Presets map[string][]string
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	deps   Deps
	logger zerolog.Logger
	opts   Options
}

// endpoints is returned with every 404.
var endpoints = []string{
	"GET /health",
	"GET /models",
	"GET /languages",
	"GET /metrics",
	"POST /translate",
	"POST /translate/:backend",
	"POST /compare",
	"POST /compare-three",
	"POST /compare-custom",
	"POST /benchmark",
	"POST /cleanup",
}

func NewServer(deps Deps, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 5000
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		deps:   deps,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

// Handler builds the echo instance with every route registered.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}
			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/health", s.handleHealth)
	e.GET("/models", s.handleModels)
	e.GET("/languages", s.handleLanguages)
	if s.deps.Stats != nil {
		e.GET("/metrics", echo.WrapHandler(s.deps.Stats.Handler()))
	}

	e.POST("/translate", s.handleTranslate)
	e.POST("/translate/:backend", s.handleTranslate)
	e.POST("/compare", s.handlePreset(config.PresetCompare, false))
	e.POST("/compare-three", s.handlePreset(config.PresetCompareThree, false))
	e.POST("/compare-custom", s.handlePreset(config.PresetCompareCustom, true))
	e.POST("/benchmark", s.handleBenchmark)
	e.POST("/cleanup", s.handleCleanup)

	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.deps.Dispatcher == nil || s.deps.Catalog == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("transbench server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("transbench server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
	}

	if status == http.StatusNotFound {
		_ = c.JSON(status, notFoundResponse{
			Error:              "Endpoint not found",
			AvailableEndpoints: endpoints,
		})
		return
	}
	_ = fail(c, status, message)
}
