package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"jobradar/internal/config"
	"jobradar/internal/dedup"
	"jobradar/internal/logging"
	"jobradar/internal/notify"
	"jobradar/internal/retry"
	"jobradar/internal/scraper"
	"jobradar/internal/storage"
	"jobradar/internal/workflow"
	"jobradar/pkg/models"
	"jobradar/pkg/utils"
)

type stubFactory struct{}

func (stubFactory) CreateSite(name string) (scraper.Site, error) {
	return nil, fmt.Errorf("site %q not configured", name)
}

func (stubFactory) GetSupportedSites() []string { return nil }

func testExecutor(store *storage.MemoryStore) (*workflow.Executor, *config.Config) {
	cfg := &config.Config{}
	cfg.Workflow.PoolSize = 1
	cfg.Workflow.MaxReportErrors = 10
	cfg.Retry.MaxRetries = 0
	cfg.Retry.Multiplier = 2
	cfg.Retry.FailureThreshold = 5
	cfg.Dedup.CandidateLimit = 10
	cfg.Notify.Channel = "log"

	logger := logging.GetGlobalLogger()
	executor := workflow.NewExecutor(
		cfg,
		store,
		stubFactory{},
		retry.NewHandler(cfg, logger),
		dedup.NewDetector(store, cfg, logger),
		notify.NewDispatcher(cfg, store, logger),
		logger,
	)
	return executor, cfg
}

func TestWorkflowStatusHandlerIdle(t *testing.T) {
	executor, _ := testExecutor(storage.NewMemoryStore())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflow/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := WorkflowStatusHandler(executor)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "idle" {
		t.Errorf("status = %v, want idle", body["status"])
	}
}

func TestRunWorkflowHandlerRejectsEmptyProfiles(t *testing.T) {
	executor, cfg := testExecutor(storage.NewMemoryStore())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflow/run",
		strings.NewReader(`{"profiles": [], "sites": ["adzuna"]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RunWorkflowHandler(cfg, executor)(c)
	var customErr *utils.CustomError
	if !errors.As(err, &customErr) {
		t.Fatalf("error = %v, want CustomError", err)
	}
	if customErr.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", customErr.Code)
	}
}

func TestRunWorkflowHandlerReturnsReport(t *testing.T) {
	executor, cfg := testExecutor(storage.NewMemoryStore())

	e := echo.New()
	payload := `{"profiles": [{"id": "p1", "owner_id": "alice", "title": "Engineer"}], "sites": ["unknown"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflow/run", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := RunWorkflowHandler(cfg, executor)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}

	var resp models.RunWorkflowResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.Report == nil {
		t.Fatalf("response = %+v, want success with report", resp)
	}
	// The unknown site fails its unit but the run still completes.
	if resp.Report.Status != models.RunCompleted || resp.Report.FailedOperations != 1 {
		t.Errorf("report = status %s, failed %d", resp.Report.Status, resp.Report.FailedOperations)
	}
}

func TestWorkflowReportHandlerNotFound(t *testing.T) {
	store := storage.NewMemoryStore()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflow/report/run-nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("run-nope")

	if err := WorkflowReportHandler(store)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}
