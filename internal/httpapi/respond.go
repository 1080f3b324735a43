package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/valpere/transbench/internal/orchestrator"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type notFoundResponse struct {
	Error              string   `json:"error"`
	AvailableEndpoints []string `json:"available_endpoints"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, errorResponse{Error: message})
}

func failValidation(c echo.Context, verr *orchestrator.ValidationError) error {
	return c.JSON(http.StatusBadRequest, errorResponse{
		Error: verr.Message,
		Field: verr.Field,
	})
}
