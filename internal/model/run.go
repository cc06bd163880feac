package model

import "time"

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// PipelineRun records one end-to-end execution of the batch pipeline.
type PipelineRun struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	AsOfDate     time.Time
	ID           string
	Status       string
	Error        string
	OrderLines   int
	Customers    int
	CohortRows   int
	PartnerRows  int
	QualityFails int
}

// QualityResult is one data-quality check outcome for a run.
type QualityResult struct {
	CheckedAt time.Time
	RunID     string
	CheckName string
	TableName string
	CheckType string
	Status    string
	Severity  string
	Message   string
	Value     float64
	Threshold float64
}

// Quality check statuses and severities.
const (
	QualityPass = "PASS"
	QualityWarn = "WARN"
	QualityFail = "FAIL"

	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)
