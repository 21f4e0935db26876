package models

import "time"

// RunWorkflowResponse wraps a completed run's report for the API surface.
type RunWorkflowResponse struct {
	Success        bool             `json:"success"`
	Report         *ExecutionReport `json:"report,omitempty"`
	Error          string           `json:"error,omitempty"`
	ProcessingTime time.Duration    `json:"processing_time"`
	RequestID      string           `json:"request_id"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
	Version       string            `json:"version"`
	Uptime        time.Duration     `json:"uptime"`
	LastExecution *time.Time        `json:"last_execution,omitempty"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SiteStatsResponse reports retry/circuit statistics for one site.
type SiteStatsResponse struct {
	Site  string                 `json:"site"`
	Stats map[string]interface{} `json:"stats"`
}
