package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	environment string
	startedAt   time.Time
}

func NewHealthHandler(environment string) *HealthHandler {
	return &HealthHandler{
		environment: environment,
		startedAt:   time.Now(),
	}
}

func (h *HealthHandler) Check(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": h.environment,
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
	})
}
