package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/valpere/transbench/internal/benchmark"
	"github.com/valpere/transbench/internal/config"
	"github.com/valpere/transbench/internal/orchestrator"
	"github.com/valpere/transbench/internal/postprocess"
	"github.com/valpere/transbench/internal/translator"
)

type translateRequest struct {
	Text           string               `json:"text"`
	TargetLanguage string               `json:"targetLanguage"`
	Model          string               `json:"model"`
	Models         []string             `json:"models"`
	Context        *postprocess.Context `json:"context,omitempty"`
}

func (r translateRequest) dispatch(models []string) orchestrator.Request {
	return orchestrator.Request{
		Text:           r.Text,
		TargetLanguage: r.TargetLanguage,
		Models:         models,
		Context:        r.Context,
	}
}

type healthResponse struct {
	Status           string                          `json:"status"`
	UptimeSeconds    float64                         `json:"uptime_seconds"`
	TranslationCount int64                           `json:"translation_count"`
	Models           map[string]translator.InitState `json:"models"`
}

type modelInfo struct {
	translator.Descriptor
	State translator.InitState `json:"state"`
}

type cleanupResponse struct {
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Released []string `json:"released"`
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := healthResponse{
		Status: "healthy",
		Models: s.deps.Catalog.Readiness(),
	}
	if s.deps.Stats != nil {
		resp.UptimeSeconds = s.deps.Stats.Uptime().Seconds()
		resp.TranslationCount = s.deps.Stats.Translations()
	}
	return success(c, resp)
}

func (s *Server) handleModels(c echo.Context) error {
	readiness := s.deps.Catalog.Readiness()
	descs := s.deps.Catalog.List()

	models := make([]modelInfo, 0, len(descs))
	for _, d := range descs {
		models = append(models, modelInfo{Descriptor: d, State: readiness[d.ID]})
	}
	return success(c, map[string]any{"models": models})
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{"languages": translator.Languages()})
}

// handleTranslate serves both /translate (backend from the body, default
// marian) and /translate/:backend.
func (s *Server) handleTranslate(c echo.Context) error {
	var body translateRequest
	if err := c.Bind(&body); err != nil {
		return err
	}

	backend := strings.TrimSpace(c.Param("backend"))
	if backend == "" {
		backend = strings.TrimSpace(body.Model)
	}
	if backend == "" {
		backend = translator.MarianID
	}

	res, err := s.deps.Dispatcher.TranslateOne(c.Request().Context(), backend, body.dispatch(nil))
	if err != nil {
		return s.dispatchError(c, err)
	}
	if !res.OK() {
		return c.JSON(http.StatusInternalServerError, res)
	}
	return success(c, res)
}

// handlePreset runs a named model set. When custom is set the body may
// override the models.
func (s *Server) handlePreset(name string, custom bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body translateRequest
		if err := c.Bind(&body); err != nil {
			return err
		}

		models := s.deps.Presets[name]
		if custom && len(body.Models) > 0 {
			models = body.Models
		}

		report, err := s.deps.Dispatcher.Compare(c.Request().Context(), body.dispatch(models))
		if err != nil {
			return s.dispatchError(c, err)
		}
		return success(c, report)
	}
}

func (s *Server) handleBenchmark(c echo.Context) error {
	if s.deps.Benchmarks == nil {
		return fail(c, http.StatusServiceUnavailable, "benchmarks are not configured")
	}

	var body benchmark.Request
	if err := c.Bind(&body); err != nil {
		return err
	}
	if len(body.Models) == 0 {
		body.Models = s.deps.Presets[config.PresetCompare]
	}

	run, err := s.deps.Benchmarks.Run(c.Request().Context(), body)
	if err != nil {
		return s.dispatchError(c, err)
	}
	return success(c, run)
}

func (s *Server) handleCleanup(c echo.Context) error {
	released := s.deps.Catalog.Release()
	if released == nil {
		released = []string{}
	}
	s.logger.Info().Strs("backends", released).Msg("released backend state")
	return success(c, cleanupResponse{
		Status:   "success",
		Message:  "Released loaded backend state",
		Released: released,
	})
}

func (s *Server) dispatchError(c echo.Context, err error) error {
	var verr *orchestrator.ValidationError
	if errors.As(err, &verr) {
		return failValidation(c, verr)
	}
	s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("request failed")
	return fail(c, http.StatusInternalServerError, err.Error())
}
