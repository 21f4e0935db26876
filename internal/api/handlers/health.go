package handlers

import (
	"net/http"
	"time"

	"jobradar/internal/logging"
	"jobradar/internal/workflow"
	"jobradar/pkg/models"
	"jobradar/pkg/utils"

	"github.com/labstack/echo/v4"
)

var startTime = time.Now()

// HealthHandler reports service health including storage and site
// adapter checks and the last run's finish time.
func HealthHandler(executor *workflow.Executor) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		logger.Debug("Health check requested", map[string]interface{}{"request_id": requestID})

		checks := executor.HealthCheck(c.Request().Context())
		checks["api"] = "ok"

		status := "healthy"
		for _, v := range checks {
			if v != "ok" && v != "healthy" {
				status = "degraded"
				break
			}
		}

		response := models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Uptime:    time.Since(startTime),
			Checks:    checks,
		}
		if report := executor.LastReport(); report != nil {
			t := report.FinishedAt
			response.LastExecution = &t
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, response)
	}
}

// ReadinessHandler handles readiness probe requests
func ReadinessHandler(executor *workflow.Executor) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks := executor.HealthCheck(c.Request().Context())
		if checks["storage"] != "healthy" {
			return c.JSON(http.StatusServiceUnavailable, models.HealthResponse{
				Status:    "not ready",
				Timestamp: time.Now(),
				Version:   "1.0.0",
				Uptime:    time.Since(startTime),
				Checks:    checks,
			})
		}

		return c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "ready",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
	})
}
