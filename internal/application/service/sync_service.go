package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	appsync "github.com/receiptsync/amazon-ynab-sync/internal/application/sync"
)

// JobStatus represents the current state of a reconcile job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job represents a running or completed reconcile job.
type Job struct {
	ID          string
	Status      JobStatus
	Options     appsync.Options
	StartedAt   time.Time
	CompletedAt *time.Time
	Result      *appsync.Result
	Error       error
	cancelFunc  context.CancelFunc
}

// SyncService runs reconcile jobs in the background and tracks their state.
// Only one job runs at a time; a second start while one is in flight is
// rejected rather than queued.
type SyncService struct {
	orchestrator *appsync.Orchestrator
	logger       *slog.Logger

	jobs      map[string]*Job
	jobsMutex sync.RWMutex

	runLock sync.Mutex
}

// NewSyncService creates a reconcile job service.
func NewSyncService(orchestrator *appsync.Orchestrator, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		orchestrator: orchestrator,
		logger:       logger,
		jobs:         make(map[string]*Job),
	}
}

// StartSync starts a reconcile job asynchronously and returns its ID.
// The passed context is NOT the parent of the background job; jobs run on
// context.Background() so an HTTP request completing does not cancel them.
// Use CancelSync to stop a running job.
func (s *SyncService) StartSync(_ context.Context, opts appsync.Options) (string, error) {
	job, err := s.newJob(opts)
	if err != nil {
		return "", err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	job.cancelFunc = cancel
	go s.runJob(jobCtx, job)

	s.logger.Info("reconcile job started",
		"job_id", job.ID,
		"dry_run", opts.DryRun,
		"lookback", opts.Lookback,
	)

	return job.ID, nil
}

// RunSync runs a reconcile job synchronously, returning once it has reached
// a terminal state. Callers that share a connection with the pipeline (the
// mail watch loop idles on the same IMAP session the fetch uses) must use
// this instead of StartSync so the session is free while the job runs.
func (s *SyncService) RunSync(ctx context.Context, opts appsync.Options) (*Job, error) {
	job, err := s.newJob(opts)
	if err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job.cancelFunc = cancel
	s.runJob(jobCtx, job)

	return s.GetJob(job.ID)
}

// newJob registers a pending job, claiming the single-flight run lock. The
// lock is released by runJob.
func (s *SyncService) newJob(opts appsync.Options) (*Job, error) {
	if !s.runLock.TryLock() {
		return nil, fmt.Errorf("a reconcile run is already in progress")
	}

	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Options:   opts,
		StartedAt: time.Now(),
	}

	s.jobsMutex.Lock()
	s.jobs[job.ID] = job
	s.jobsMutex.Unlock()

	return job, nil
}

// GetJob retrieves a job by ID.
func (s *SyncService) GetJob(jobID string) (*Job, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// ListJobs returns all tracked jobs.
func (s *SyncService) ListJobs() []*Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelSync cancels a pending or running job.
func (s *SyncService) CancelSync(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now

	s.logger.Info("reconcile job cancelled", "job_id", jobID)
	return nil
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *SyncService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		switch job.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(s.jobs, id)
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old reconcile jobs", "removed", removed)
	}
	return removed
}

func (s *SyncService) runJob(ctx context.Context, job *Job) {
	defer s.runLock.Unlock()

	s.setStatus(job.ID, StatusRunning)

	result, err := s.orchestrator.Run(ctx, job.Options)
	if err != nil {
		if ctx.Err() == context.Canceled {
			// Already marked cancelled in CancelSync.
			return
		}
		s.failJob(job.ID, err)
		return
	}

	s.completeJob(job.ID, result)
}

func (s *SyncService) setStatus(jobID string, status JobStatus) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists && !isTerminal(job.Status) {
		job.Status = status
	}
}

// isTerminal reports whether a job has already finished. Terminal states are
// never overwritten: a cancel that lands after the run's last I/O must not be
// clobbered by a late completion.
func isTerminal(status JobStatus) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s *SyncService) completeJob(jobID string, result *appsync.Result) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		if isTerminal(job.Status) {
			return
		}
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Result = result

		s.logger.Info("reconcile job completed",
			"job_id", jobID,
			"messages", result.MessagesScanned,
			"records", result.RecordsExtracted,
			"matches", result.MatchesAccepted,
			"applied", result.UpdatesApplied,
			"errors", result.ErrorCount,
		)
	}
}

func (s *SyncService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		if isTerminal(job.Status) {
			return
		}
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err

		s.logger.Error("reconcile job failed", "job_id", jobID, "error", err)
	}
}
