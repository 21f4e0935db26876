package models

import "time"

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ExecutionError is one recovered unit-level failure, with enough context
// to diagnose without re-running.
type ExecutionError struct {
	Site      string    `json:"site"`
	ProfileID string    `json:"profile_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionReport is the structured result of one workflow run.
type ExecutionReport struct {
	ExecutionID string     `json:"execution_id"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	Watermark    *time.Time `json:"watermark,omitempty"`     // incremental bound this run used
	NewWatermark *time.Time `json:"new_watermark,omitempty"` // persisted only on completed runs

	Units                  int `json:"units"` // (profile x site) pairs attempted
	PostingsFetched        int `json:"postings_fetched"`
	PostingsAfterWatermark int `json:"postings_after_watermark"`
	DuplicatesSkipped      int `json:"duplicates_skipped"`
	MatchesPersisted       int `json:"matches_persisted"`
	SuccessfulOperations   int `json:"successful_operations"`
	FailedOperations       int `json:"failed_operations"`

	Errors []ExecutionError `json:"errors,omitempty"` // bounded, see workflow.maxReportErrors
}
