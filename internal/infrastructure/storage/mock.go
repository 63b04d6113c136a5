package storage

import (
	"sync"
	"time"
)

// MockRepository is an in-memory Repository for tests.
type MockRepository struct {
	mu      sync.Mutex
	runs    []ReconcileRun
	matches []MatchRecord
	nextRun int64
}

// NewMockRepository creates an empty in-memory repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{nextRun: 1}
}

func (m *MockRepository) StartRun(lookback int, dryRun bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextRun
	m.nextRun++
	m.runs = append(m.runs, ReconcileRun{
		ID:        id,
		StartedAt: time.Now(),
		Lookback:  lookback,
		DryRun:    dryRun,
		Status:    "running",
	})
	return id, nil
}

func (m *MockRepository) CompleteRun(runID int64, scanned, extracted, matched, errors int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == runID {
			now := time.Now()
			m.runs[i].CompletedAt = &now
			m.runs[i].MessagesScanned = scanned
			m.runs[i].RecordsExtracted = extracted
			m.runs[i].MatchesAccepted = matched
			m.runs[i].Errors = errors
			if errors > 0 {
				m.runs[i].Status = "partial"
			} else {
				m.runs[i].Status = "success"
			}
		}
	}
	return nil
}

func (m *MockRepository) ListRuns(limit int) ([]ReconcileRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Newest first.
	out := make([]ReconcileRun, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *MockRepository) GetRun(runID int64) (*ReconcileRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, run := range m.runs {
		if run.ID == runID {
			r := run
			return &r, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &Stats{TotalRuns: len(m.runs)}
	for _, match := range m.matches {
		if !match.DryRun {
			stats.TotalMatches++
		}
	}
	for _, run := range m.runs {
		stats.TotalErrors += run.Errors
	}
	if n := len(m.runs); n > 0 {
		last := m.runs[n-1]
		stats.LastRunAt = &last.StartedAt
		stats.LastRunStatus = last.Status
	}
	return stats, nil
}

func (m *MockRepository) SaveMatch(record *MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.ID = int64(len(m.matches) + 1)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	m.matches = append(m.matches, *record)
	return nil
}

func (m *MockRepository) ListMatches(limit int) ([]MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MatchRecord, 0, limit)
	for i := len(m.matches) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.matches[i])
	}
	return out, nil
}

func (m *MockRepository) ListMatchesByRun(runID int64) ([]MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []MatchRecord
	for _, match := range m.matches {
		if match.RunID == runID {
			out = append(out, match)
		}
	}
	return out, nil
}

func (m *MockRepository) Close() error { return nil }
