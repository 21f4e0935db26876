package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"jobradar/internal/config"
	"jobradar/internal/logging"
	"jobradar/internal/storage"
	"jobradar/internal/workflow"
	"jobradar/pkg/models"
	"jobradar/pkg/utils"
)

var validate = validator.New()

// RunWorkflowHandler triggers a synchronous aggregation run over the
// submitted profiles and sites.
func RunWorkflowHandler(cfg *config.Config, executor *workflow.Executor) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger().WithField("request_id", requestID)

		var req models.RunWorkflowRequest
		if err := c.Bind(&req); err != nil {
			logger.Error("Failed to bind run request", map[string]interface{}{"error": err.Error()})
			return utils.NewBadRequestError("Invalid request format")
		}

		if err := validate.Struct(&req); err != nil {
			logger.Error("Run request validation failed", map[string]interface{}{"error": err.Error()})
			return utils.NewValidationError(err.Error())
		}

		logger.Info("Workflow run requested", map[string]interface{}{
			"profiles": len(req.Profiles),
			"sites":    req.Sites,
		})

		report, err := executor.RunWorkflow(c.Request().Context(), req.Profiles, req.Sites)
		if errors.Is(err, workflow.ErrRunInProgress) {
			return utils.NewConflictError("A workflow run is already executing")
		}
		if err != nil {
			// The report still carries partial counters and errors.
			return c.JSON(http.StatusInternalServerError, models.RunWorkflowResponse{
				Success:        false,
				Report:         report,
				Error:          err.Error(),
				ProcessingTime: time.Since(startTime),
				RequestID:      requestID,
			})
		}

		return c.JSON(http.StatusOK, models.RunWorkflowResponse{
			Success:        true,
			Report:         report,
			ProcessingTime: time.Since(startTime),
			RequestID:      requestID,
		})
	}
}

// WorkflowStatusHandler reports whether a run is executing and the most
// recent report summary.
func WorkflowStatusHandler(executor *workflow.Executor) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, executionID := executor.Status()

		body := map[string]interface{}{
			"status": string(status),
		}
		if executionID != "" {
			body["execution_id"] = executionID
		}
		if report := executor.LastReport(); report != nil {
			body["last_report"] = report
		}
		return c.JSON(http.StatusOK, body)
	}
}

// WorkflowReportHandler returns a persisted execution report by ID.
func WorkflowReportHandler(store storage.PersistenceStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		executionID := c.Param("id")

		report, err := store.FindReport(c.Request().Context(), executionID)
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:     "report_not_found",
				Message:   "No report for execution " + executionID,
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}
		if err != nil {
			return utils.NewInternalServerError("report lookup failed: " + err.Error())
		}
		return c.JSON(http.StatusOK, report)
	}
}
