package sync

import (
	"context"
	"log/slog"

	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/categorizer"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/matcher"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/cache"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/storage"
)

// MailSource provides raw order-confirmation messages.
type MailSource interface {
	FetchRecent(ctx context.Context, limit int) ([]extractor.Message, error)
}

// Ledger is the external ledger collaborator. The orchestrator never mutates
// cached transactions itself; annotation happens on the ledger side and
// flows back through the next sync delta.
type Ledger interface {
	SyncTransactions(ctx context.Context, serverKnowledge int64) ([]*ynab.Transaction, int64, error)
	UpdateTransactions(ctx context.Context, updates []ynab.TransactionUpdate) error
}

// Options holds per-run settings.
type Options struct {
	DryRun   bool
	Lookback int // how many recent messages to scan
}

// Result holds the outcome of one reconcile run.
type Result struct {
	MessagesScanned  int
	RecordsExtracted int
	MatchesAccepted  int
	UpdatesApplied   int
	ErrorCount       int
	Errors           []error
}

// Orchestrator runs the extract-reconcile-annotate pipeline.
type Orchestrator struct {
	mail      MailSource
	ledger    Ledger
	extractor *extractor.Extractor
	matcher   *matcher.Matcher
	cache     *cache.TransactionCache
	storage   storage.Repository
	suggester categorizer.Suggester
	logger    *slog.Logger
}

// NewOrchestrator creates a reconcile orchestrator. storage and suggester
// may be nil; both only enrich the audit trail.
func NewOrchestrator(
	mail MailSource,
	ledger Ledger,
	ex *extractor.Extractor,
	m *matcher.Matcher,
	txCache *cache.TransactionCache,
	store storage.Repository,
	suggester categorizer.Suggester,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		mail:      mail,
		ledger:    ledger,
		extractor: ex,
		matcher:   m,
		cache:     txCache,
		storage:   store,
		suggester: suggester,
		logger:    logger,
	}
}
