package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for the reconcile audit trail.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartRun records the start of a reconcile run and returns the run ID
func (s *Storage) StartRun(lookback int, dryRun bool) (int64, error) {
	result, err := s.db.Exec(`
	INSERT INTO reconcile_runs (started_at, lookback, dry_run, status)
	VALUES (?, ?, ?, 'running')`,
		time.Now(), lookback, dryRun,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CompleteRun records the completion of a reconcile run
func (s *Storage) CompleteRun(runID int64, scanned, extracted, matched, errors int) error {
	status := "success"
	if errors > 0 {
		status = "partial"
	}

	_, err := s.db.Exec(`
	UPDATE reconcile_runs
	SET completed_at = ?, messages_scanned = ?, records_extracted = ?,
	    matches_accepted = ?, errors = ?, status = ?
	WHERE id = ?`,
		time.Now(), scanned, extracted, matched, errors, status, runID,
	)
	return err
}

// ListRuns returns recent reconcile runs, newest first
func (s *Storage) ListRuns(limit int) ([]ReconcileRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
	SELECT id, started_at, completed_at, lookback, dry_run,
	       messages_scanned, records_extracted, matches_accepted, errors, status
	FROM reconcile_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []ReconcileRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a reconcile run by ID. Returns nil when not found.
func (s *Storage) GetRun(runID int64) (*ReconcileRun, error) {
	rows, err := s.db.Query(`
	SELECT id, started_at, completed_at, lookback, dry_run,
	       messages_scanned, records_extracted, matches_accepted, errors, status
	FROM reconcile_runs WHERE id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRun(rows)
}

func scanRun(rows *sql.Rows) (*ReconcileRun, error) {
	run := &ReconcileRun{}
	var completedAt sql.NullTime
	err := rows.Scan(
		&run.ID,
		&run.StartedAt,
		&completedAt,
		&run.Lookback,
		&run.DryRun,
		&run.MessagesScanned,
		&run.RecordsExtracted,
		&run.MatchesAccepted,
		&run.Errors,
		&run.Status,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

// GetStats returns aggregate statistics
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(errors), 0) FROM reconcile_runs`).
		Scan(&stats.TotalRuns, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM match_records WHERE dry_run = 0`).
		Scan(&stats.TotalMatches)
	if err != nil {
		return nil, err
	}

	var lastRunAt sql.NullTime
	var lastStatus sql.NullString
	err = s.db.QueryRow(`
	SELECT started_at, status FROM reconcile_runs
	ORDER BY started_at DESC LIMIT 1`).Scan(&lastRunAt, &lastStatus)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastRunAt.Valid {
		stats.LastRunAt = &lastRunAt.Time
	}
	if lastStatus.Valid {
		stats.LastRunStatus = lastStatus.String
	}

	return stats, nil
}

// SaveMatch saves an accepted match record
func (s *Storage) SaveMatch(record *MatchRecord) error {
	itemsJSON, _ := json.Marshal(record.Items)

	_, err := s.db.Exec(`
	INSERT INTO match_records
	(run_id, transaction_id, record_date, amount_milliunits, memo,
	 items_json, category_suggested, dry_run, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.TransactionID,
		record.RecordDate,
		record.AmountMilliunits,
		record.Memo,
		string(itemsJSON),
		record.CategorySuggested,
		record.DryRun,
		time.Now(),
	)
	return err
}

// ListMatches returns recent match records, newest first
func (s *Storage) ListMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryMatches(`
	SELECT id, run_id, transaction_id, record_date, amount_milliunits,
	       memo, items_json, category_suggested, dry_run, created_at
	FROM match_records ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// ListMatchesByRun returns match records for a specific run
func (s *Storage) ListMatchesByRun(runID int64) ([]MatchRecord, error) {
	return s.queryMatches(`
	SELECT id, run_id, transaction_id, record_date, amount_milliunits,
	       memo, items_json, category_suggested, dry_run, created_at
	FROM match_records WHERE run_id = ? ORDER BY id ASC`, runID)
}

func (s *Storage) queryMatches(query string, arg interface{}) ([]MatchRecord, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []MatchRecord
	for rows.Next() {
		var record MatchRecord
		var itemsJSON string
		err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.TransactionID,
			&record.RecordDate,
			&record.AmountMilliunits,
			&record.Memo,
			&itemsJSON,
			&record.CategorySuggested,
			&record.DryRun,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if itemsJSON != "" {
			_ = json.Unmarshal([]byte(itemsJSON), &record.Items)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
