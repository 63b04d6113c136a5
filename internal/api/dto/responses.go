package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// RunResponse represents a reconcile run in API responses.
type RunResponse struct {
	ID               int64  `json:"id"`
	StartedAt        string `json:"started_at"`
	CompletedAt      string `json:"completed_at,omitempty"`
	Lookback         int    `json:"lookback"`
	DryRun           bool   `json:"dry_run"`
	MessagesScanned  int    `json:"messages_scanned"`
	RecordsExtracted int    `json:"records_extracted"`
	MatchesAccepted  int    `json:"matches_accepted"`
	Errors           int    `json:"errors"`
	Status           string `json:"status"`
}

// RunListResponse is returned when listing reconcile runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// MatchResponse represents an accepted match in API responses.
type MatchResponse struct {
	ID                int64    `json:"id"`
	RunID             int64    `json:"run_id"`
	TransactionID     string   `json:"transaction_id"`
	RecordDate        string   `json:"record_date"`
	AmountMilliunits  int64    `json:"amount_milliunits"`
	Memo              string   `json:"memo"`
	Items             []string `json:"items"`
	CategorySuggested string   `json:"category_suggested,omitempty"`
	DryRun            bool     `json:"dry_run"`
	CreatedAt         string   `json:"created_at"`
}

// MatchListResponse is returned when listing matches.
type MatchListResponse struct {
	Matches []MatchResponse `json:"matches"`
	Count   int             `json:"count"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TotalRuns     int    `json:"total_runs"`
	TotalMatches  int    `json:"total_matches"`
	TotalErrors   int    `json:"total_errors"`
	LastRunAt     string `json:"last_run_at,omitempty"`
	LastRunStatus string `json:"last_run_status,omitempty"`
}

// JobResponse represents a reconcile job's status.
type JobResponse struct {
	JobID       string             `json:"job_id"`
	Status      string             `json:"status"`
	DryRun      bool               `json:"dry_run"`
	Lookback    int                `json:"lookback"`
	StartedAt   string             `json:"started_at"`
	CompletedAt *string            `json:"completed_at,omitempty"`
	Result      *JobResultResponse `json:"result,omitempty"`
	Error       *string            `json:"error,omitempty"`
}

// JobResultResponse represents the final result of a reconcile job.
type JobResultResponse struct {
	MessagesScanned  int `json:"messages_scanned"`
	RecordsExtracted int `json:"records_extracted"`
	MatchesAccepted  int `json:"matches_accepted"`
	UpdatesApplied   int `json:"updates_applied"`
	ErrorCount       int `json:"error_count"`
}

// JobListResponse lists reconcile jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// StartJobResponse is returned when a reconcile job is started.
type StartJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}
