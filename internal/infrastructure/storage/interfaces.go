package storage

// Repository defines the complete storage interface.
// Reconciliation state itself lives in the ledger memo field; this store is
// an audit trail for runs and accepted matches, so the API and CLI can
// answer "what happened" without re-querying external services.
type Repository interface {
	RunRepository
	MatchRepository
	Close() error
}

// RunRepository handles reconcile run tracking
type RunRepository interface {
	// StartRun records the start of a reconcile run and returns the run ID
	StartRun(lookback int, dryRun bool) (int64, error)

	// CompleteRun records the completion of a reconcile run
	CompleteRun(runID int64, scanned, extracted, matched, errors int) error

	// ListRuns returns recent reconcile runs
	ListRuns(limit int) ([]ReconcileRun, error)

	// GetRun retrieves a reconcile run by ID
	GetRun(runID int64) (*ReconcileRun, error)

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}

// MatchRepository handles accepted-match records
type MatchRepository interface {
	// SaveMatch saves an accepted match record
	SaveMatch(record *MatchRecord) error

	// ListMatches returns recent match records, newest first
	ListMatches(limit int) ([]MatchRecord, error)

	// ListMatchesByRun returns match records for a specific run
	ListMatchesByRun(runID int64) ([]MatchRecord, error)
}
