package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/matcher"
	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/cache"
)

type fakeMail struct {
	messages []extractor.Message
	err      error
}

func (f *fakeMail) FetchRecent(_ context.Context, _ int) ([]extractor.Message, error) {
	return f.messages, f.err
}

type fakeLedger struct {
	transactions    []*ynab.Transaction
	serverKnowledge int64
	syncErr         error
	updateErr       error
	updates         [][]ynab.TransactionUpdate
}

func (f *fakeLedger) SyncTransactions(_ context.Context, _ int64) ([]*ynab.Transaction, int64, error) {
	return f.transactions, f.serverKnowledge, f.syncErr
}

func (f *fakeLedger) UpdateTransactions(_ context.Context, updates []ynab.TransactionUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, updates)
	return nil
}

const orderEmail = `<html><body>
<table><tr><td>Order Total: $42.10</td></tr></table>
<a href="https://www.amazon.com/dp/B0001AAAAA">Widget A</a>
<a href="https://www.amazon.com/dp/B0002BBBBB">Widget B</a>
</body></html>`

func orderMessage(day int) extractor.Message {
	return extractor.Message{
		From:       "auto-confirm@amazon.com",
		Subject:    "Your Amazon.com order",
		HTMLBody:   orderEmail,
		ReceivedAt: time.Date(2025, 10, day, 9, 30, 0, 0, time.UTC),
	}
}

func ledgerTransaction(id string, day int, amount int64) *ynab.Transaction {
	return &ynab.Transaction{
		ID:     id,
		Date:   ynab.Date{Time: time.Date(2025, 10, day, 0, 0, 0, 0, time.UTC)},
		Amount: amount,
	}
}

func newTestOrchestrator(mail MailSource, ledger Ledger) *Orchestrator {
	return NewOrchestrator(
		mail,
		ledger,
		extractor.New(extractor.DefaultConfig(), nil),
		matcher.New(matcher.DefaultConfig()),
		cache.NewTransactionCache(),
		nil,
		nil,
		nil,
	)
}

func TestRun_EndToEnd(t *testing.T) {
	mail := &fakeMail{messages: []extractor.Message{orderMessage(10)}}
	ledger := &fakeLedger{
		transactions:    []*ynab.Transaction{ledgerTransaction("tx1", 10, -42100)},
		serverKnowledge: 100,
	}

	o := newTestOrchestrator(mail, ledger)
	result, err := o.Run(context.Background(), Options{Lookback: 500})

	require.NoError(t, err)
	assert.Equal(t, 1, result.MessagesScanned)
	assert.Equal(t, 1, result.RecordsExtracted)
	assert.Equal(t, 1, result.MatchesAccepted)
	assert.Equal(t, 1, result.UpdatesApplied)

	require.Len(t, ledger.updates, 1)
	require.Len(t, ledger.updates[0], 1)
	update := ledger.updates[0][0]
	assert.Equal(t, "tx1", update.ID)
	assert.Equal(t, "Widget A; Widget B", update.Memo)
	assert.False(t, update.Approved)
}

func TestRun_DryRunAppliesNothing(t *testing.T) {
	mail := &fakeMail{messages: []extractor.Message{orderMessage(10)}}
	ledger := &fakeLedger{
		transactions:    []*ynab.Transaction{ledgerTransaction("tx1", 10, -42100)},
		serverKnowledge: 100,
	}

	o := newTestOrchestrator(mail, ledger)
	result, err := o.Run(context.Background(), Options{Lookback: 500, DryRun: true})

	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchesAccepted)
	assert.Equal(t, 0, result.UpdatesApplied)
	assert.Empty(t, ledger.updates)
}

func TestRun_UnextractableMessagesExcluded(t *testing.T) {
	junk := extractor.Message{
		From:       "newsletter@example.com",
		Subject:    "weekly deals",
		HTMLBody:   "<html><body>nothing useful</body></html>",
		ReceivedAt: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC),
	}

	mail := &fakeMail{messages: []extractor.Message{junk, orderMessage(10)}}
	ledger := &fakeLedger{
		transactions:    []*ynab.Transaction{ledgerTransaction("tx1", 10, -42100)},
		serverKnowledge: 100,
	}

	o := newTestOrchestrator(mail, ledger)
	result, err := o.Run(context.Background(), Options{Lookback: 500})

	require.NoError(t, err)
	assert.Equal(t, 2, result.MessagesScanned)
	assert.Equal(t, 1, result.RecordsExtracted)
	assert.Equal(t, 1, result.MatchesAccepted)
}

func TestRun_MailFailureIsFatalToTheRunOnly(t *testing.T) {
	mail := &fakeMail{err: errors.New("connection reset")}
	ledger := &fakeLedger{}

	o := newTestOrchestrator(mail, ledger)
	_, err := o.Run(context.Background(), Options{Lookback: 500})

	require.Error(t, err)
	assert.Empty(t, ledger.updates)
}

func TestRun_UpdateFailureDegrades(t *testing.T) {
	mail := &fakeMail{messages: []extractor.Message{orderMessage(10)}}
	ledger := &fakeLedger{
		transactions:    []*ynab.Transaction{ledgerTransaction("tx1", 10, -42100)},
		serverKnowledge: 100,
		updateErr:       errors.New("503 from ledger"),
	}

	o := newTestOrchestrator(mail, ledger)
	result, err := o.Run(context.Background(), Options{Lookback: 500})

	// Degraded, not fatal: fewer updates this cycle, retried next cycle.
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchesAccepted)
	assert.Equal(t, 0, result.UpdatesApplied)
	assert.Equal(t, 1, result.ErrorCount)
}

func TestRun_AnnotatedTransactionsNotRematched(t *testing.T) {
	annotated := ledgerTransaction("tx1", 10, -42100)
	annotated.Memo = "Widget A; Widget B"

	mail := &fakeMail{messages: []extractor.Message{orderMessage(10)}}
	ledger := &fakeLedger{
		transactions:    []*ynab.Transaction{annotated},
		serverKnowledge: 100,
	}

	o := newTestOrchestrator(mail, ledger)
	result, err := o.Run(context.Background(), Options{Lookback: 500})

	require.NoError(t, err)
	assert.Equal(t, 0, result.MatchesAccepted)
	assert.Empty(t, ledger.updates)
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	// First run annotates; the second run sees the memo (via the delta)
	// and accepts nothing new.
	mail := &fakeMail{messages: []extractor.Message{orderMessage(10)}}
	tx := ledgerTransaction("tx1", 10, -42100)
	ledger := &fakeLedger{
		transactions:    []*ynab.Transaction{tx},
		serverKnowledge: 100,
	}

	o := newTestOrchestrator(mail, ledger)

	result, err := o.Run(context.Background(), Options{Lookback: 500})
	require.NoError(t, err)
	require.Equal(t, 1, result.UpdatesApplied)

	annotated := *tx
	annotated.Memo = ledger.updates[0][0].Memo
	ledger.transactions = []*ynab.Transaction{&annotated}
	ledger.serverKnowledge = 101

	result, err = o.Run(context.Background(), Options{Lookback: 500})
	require.NoError(t, err)
	assert.Equal(t, 0, result.MatchesAccepted)
	require.Len(t, ledger.updates, 1)
}

func TestExtractRecords_DeterministicOrder(t *testing.T) {
	// Extraction runs concurrently; the resulting record order must not
	// depend on completion order.
	messages := []extractor.Message{
		orderMessage(12),
		orderMessage(10),
		orderMessage(11),
	}

	o := newTestOrchestrator(&fakeMail{}, &fakeLedger{})

	first := o.extractRecords(context.Background(), messages)
	require.Len(t, first, 3)

	for i := 0; i < 10; i++ {
		again := o.extractRecords(context.Background(), messages)
		require.Equal(t, first, again)
	}

	assert.True(t, first[0].Date.Before(first[1].Date))
	assert.True(t, first[1].Date.Before(first[2].Date))
}

func TestBuildMemo_Truncates(t *testing.T) {
	items := []string{
		"A very long item title that goes on and on and on and keeps going",
		"Another very long item title that also goes on and on and on forever",
		"A third very long item title to push the memo over the length cap",
	}

	memo := buildMemo(items)

	assert.LessOrEqual(t, len([]rune(memo)), 200)
	assert.True(t, len(memo) > 0)
}
