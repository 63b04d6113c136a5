// Package sync orchestrates one reconcile cycle: fetch recent messages,
// extract purchase records, refresh the transaction cache, match, and push
// memo updates to the ledger.
//
// Failures inside a cycle degrade rather than abort: a message that cannot
// be extracted or an update batch that cannot be applied costs matches this
// cycle, and the next cycle re-queries both sides and heals.
package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/matcher"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/storage"
)

// extractConcurrency bounds in-flight extractions. Parsing is CPU-bound and
// cheap; the limit mostly keeps memory flat on large backfills.
const extractConcurrency = 4

// memoMaxLen caps the annotation written to the ledger; YNAB truncates long
// memos server-side anyway.
const memoMaxLen = 200

// Run executes one reconcile cycle.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	o.logger.Debug("starting reconcile run",
		"lookback", opts.Lookback,
		"dry_run", opts.DryRun,
	)

	// 1. Fetch recent messages.
	messages, err := o.mail.FetchRecent(ctx, opts.Lookback)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	result.MessagesScanned = len(messages)

	var runID int64
	if o.storage != nil {
		runID, err = o.storage.StartRun(opts.Lookback, opts.DryRun)
		if err != nil {
			o.logger.Warn("failed to start run tracking", "error", err)
			// Tracking failure never blocks reconciliation.
		}
	}

	// 2. Extract purchase records concurrently; individual failures are
	// logged inside the extractor and excluded here.
	records := o.extractRecords(ctx, messages)
	result.RecordsExtracted = len(records)

	o.logger.Debug("extracted records",
		"messages", len(messages),
		"records", len(records),
	)

	// 3. Refresh the transaction cache from the ledger delta.
	delta, serverKnowledge, err := o.ledger.SyncTransactions(ctx, o.cache.ServerKnowledge())
	if err != nil {
		o.completeRun(runID, result)
		return nil, fmt.Errorf("failed to sync transactions: %w", err)
	}
	o.cache.Apply(delta, serverKnowledge)

	o.logger.Debug("refreshed transaction cache",
		"delta", len(delta),
		"cached", o.cache.Len(),
	)

	// 4. Match.
	matches := o.matcher.Match(records, o.cache.Snapshot())
	result.MatchesAccepted = len(matches)

	if len(matches) == 0 {
		o.completeRun(runID, result)
		o.logger.Info("reconcile run complete",
			"messages", result.MessagesScanned,
			"records", result.RecordsExtracted,
			"matches", 0,
		)
		return result, nil
	}

	// 5. Annotate matched transactions.
	updates := make([]ynab.TransactionUpdate, 0, len(matches))
	for _, match := range matches {
		updates = append(updates, ynab.TransactionUpdate{
			ID:       match.TransactionID,
			Memo:     buildMemo(match.Record.Items),
			Approved: false,
		})
	}

	if opts.DryRun {
		for _, update := range updates {
			o.logger.Info("[dry run] would annotate transaction",
				"transaction_id", update.ID,
				"memo", update.Memo,
			)
		}
	} else {
		if err := o.ledger.UpdateTransactions(ctx, updates); err != nil {
			// The batch is lost for this cycle only; unannotated
			// transactions match again next run.
			o.logger.Error("failed to apply updates", "error", err)
			result.ErrorCount++
			result.Errors = append(result.Errors, err)
			o.completeRun(runID, result)
			return result, nil
		}
		result.UpdatesApplied = len(updates)
	}

	o.recordMatches(ctx, runID, matches, opts.DryRun)
	o.completeRun(runID, result)

	o.logger.Info("reconcile run complete",
		"messages", result.MessagesScanned,
		"records", result.RecordsExtracted,
		"matches", result.MatchesAccepted,
		"applied", result.UpdatesApplied,
		"dry_run", opts.DryRun,
	)

	return result, nil
}

// extractRecords fans extraction out over the messages and collects the
// successes in a deterministic order. Completion order varies between runs,
// so records are re-sorted chronologically (then by amount, then first item)
// before matching; candidate tie-break depends on record order.
func (o *Orchestrator) extractRecords(ctx context.Context, messages []extractor.Message) []*extractor.PurchaseRecord {
	var mu sync.Mutex
	var records []*extractor.PurchaseRecord

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(extractConcurrency)

	for _, msg := range messages {
		g.Go(func() error {
			record := o.extractor.Extract(msg)
			if record == nil {
				return nil
			}
			mu.Lock()
			records = append(records, record)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; extraction failures are logged and
	// skipped so one bad message cannot abort the batch.
	_ = g.Wait()

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		if records[i].Amount != records[j].Amount {
			return records[i].Amount < records[j].Amount
		}
		return firstItem(records[i]) < firstItem(records[j])
	})

	return records
}

// recordMatches writes the audit trail for accepted matches, enriched with
// category suggestions when the add-on is configured.
func (o *Orchestrator) recordMatches(ctx context.Context, runID int64, matches []matcher.AcceptedMatch, dryRun bool) {
	if o.storage == nil {
		return
	}

	for _, match := range matches {
		record := &storage.MatchRecord{
			RunID:            runID,
			TransactionID:    match.TransactionID,
			RecordDate:       match.Record.Date,
			AmountMilliunits: match.Record.Amount,
			Memo:             buildMemo(match.Record.Items),
			Items:            match.Record.Items,
			DryRun:           dryRun,
		}

		if o.suggester != nil {
			suggestion, err := o.suggester.Suggest(ctx, match.Record.Items)
			if err != nil {
				o.logger.Warn("category suggestion failed",
					"transaction_id", match.TransactionID,
					"error", err,
				)
			} else {
				record.CategorySuggested = suggestion
			}
		}

		if err := o.storage.SaveMatch(record); err != nil {
			o.logger.Warn("failed to save match record",
				"transaction_id", match.TransactionID,
				"error", err,
			)
		}
	}
}

func (o *Orchestrator) completeRun(runID int64, result *Result) {
	if o.storage == nil || runID == 0 {
		return
	}
	if err := o.storage.CompleteRun(runID, result.MessagesScanned, result.RecordsExtracted, result.MatchesAccepted, result.ErrorCount); err != nil {
		o.logger.Warn("failed to complete run tracking", "error", err)
	}
}

// buildMemo joins item titles into the ledger annotation.
func buildMemo(items []string) string {
	memo := strings.Join(items, "; ")
	runes := []rune(memo)
	if len(runes) <= memoMaxLen {
		return memo
	}
	return string(runes[:memoMaxLen-2]) + ".."
}

func firstItem(record *extractor.PurchaseRecord) string {
	if len(record.Items) == 0 {
		return ""
	}
	return record.Items[0]
}
