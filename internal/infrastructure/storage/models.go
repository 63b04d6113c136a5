package storage

import (
	"time"
)

// ReconcileRun represents one reconcile run record
type ReconcileRun struct {
	ID                int64      `json:"id"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Lookback          int        `json:"lookback"`
	DryRun            bool       `json:"dry_run"`
	MessagesScanned   int        `json:"messages_scanned"`
	RecordsExtracted  int        `json:"records_extracted"`
	MatchesAccepted   int        `json:"matches_accepted"`
	Errors            int        `json:"errors"`
	Status            string     `json:"status"`
}

// MatchRecord represents one accepted match, as applied (or previewed in a
// dry run) against the ledger.
type MatchRecord struct {
	ID                int64     `json:"id"`
	RunID             int64     `json:"run_id"`
	TransactionID     string    `json:"transaction_id"`
	RecordDate        time.Time `json:"record_date"`
	AmountMilliunits  int64     `json:"amount_milliunits"`
	Memo              string    `json:"memo"`
	Items             []string  `json:"items"`
	CategorySuggested string    `json:"category_suggested,omitempty"`
	DryRun            bool      `json:"dry_run"`
	CreatedAt         time.Time `json:"created_at"`
}

// Stats holds aggregate statistics across all runs
type Stats struct {
	TotalRuns        int        `json:"total_runs"`
	TotalMatches     int        `json:"total_matches"`
	TotalErrors      int        `json:"total_errors"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus    string     `json:"last_run_status,omitempty"`
}
