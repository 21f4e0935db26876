package routes

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"jobradar/internal/api/handlers"
	"jobradar/internal/api/middleware"
	"jobradar/internal/config"
	"jobradar/internal/retry"
	"jobradar/internal/storage"
	"jobradar/internal/workflow"
	"jobradar/pkg/models"
	"jobradar/pkg/utils"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, executor *workflow.Executor, store storage.PersistenceStore, retrier *retry.Handler) {
	e.HTTPErrorHandler = errorHandler

	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	// A full aggregation run is synchronous; give it more room than the
	// read endpoints.
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, 5*time.Minute))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler(executor))
		health.GET("/ready", handlers.ReadinessHandler(executor))
		health.GET("/live", handlers.LivenessHandler)
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		wf := v1.Group("/workflow")
		{
			wf.POST("/run", handlers.RunWorkflowHandler(cfg, executor))
			wf.GET("/status", handlers.WorkflowStatusHandler(executor))
			wf.GET("/report/:id", handlers.WorkflowReportHandler(store))
		}

		v1.GET("/sites", handlers.SitesHandler(cfg))

		domains := v1.Group("/domains")
		{
			domains.GET("/stats", handlers.AllSiteStatsHandler(retrier))
			domains.GET("/:site/stats", handlers.SiteStatsHandler(retrier))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "JobRadar Aggregator",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}

// errorHandler renders handler errors as the API's error envelope.
func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "Internal server error"

	var customErr *utils.CustomError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &customErr):
		code = customErr.Code
		message = customErr.Error()
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	}

	requestID, _ := c.Get("request_id").(string)
	if !c.Response().Committed {
		_ = c.JSON(code, models.ErrorResponse{
			Error:     http.StatusText(code),
			Message:   message,
			RequestID: requestID,
			Timestamp: time.Now(),
		})
	}
}
