package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
)

func day(d int) time.Time {
	return time.Date(2025, 10, d, 0, 0, 0, 0, time.UTC)
}

func makeRecord(d int, amount int64, items ...string) *extractor.PurchaseRecord {
	if len(items) == 0 {
		items = []string{"item"}
	}
	return &extractor.PurchaseRecord{
		Date:   day(d),
		Amount: amount,
		Items:  items,
	}
}

func makeTransaction(id string, d int, amount int64) *ynab.Transaction {
	return &ynab.Transaction{
		ID:     id,
		Date:   ynab.Date{Time: day(d)},
		Amount: amount,
	}
}

func TestMatcher_ExactMatch(t *testing.T) {
	m := New(DefaultConfig())

	records := []*extractor.PurchaseRecord{makeRecord(10, -42100)}
	transactions := []*ynab.Transaction{
		makeTransaction("tx1", 10, -42100),
		makeTransaction("tx2", 10, -99000),
	}

	matches := m.Match(records, transactions)

	require.Len(t, matches, 1)
	assert.Equal(t, "tx1", matches[0].TransactionID)
	assert.Same(t, records[0], matches[0].Record)
}

func TestMatcher_DateToleranceBoundary(t *testing.T) {
	m := New(DefaultConfig())
	records := []*extractor.PurchaseRecord{makeRecord(10, -42100)}

	// Exactly at the 4-day tolerance: accepted.
	matches := m.Match(records, []*ynab.Transaction{makeTransaction("tx1", 14, -42100)})
	require.Len(t, matches, 1)
	assert.Equal(t, "tx1", matches[0].TransactionID)

	// One day beyond: rejected.
	matches = m.Match(records, []*ynab.Transaction{makeTransaction("tx1", 15, -42100)})
	assert.Empty(t, matches)
}

func TestMatcher_OffsetDateAtToleranceBoundary(t *testing.T) {
	m := New(DefaultConfig())

	// A record date carrying a mail server offset, exactly 4 calendar days
	// from the transaction. The offset must not push the delta past the
	// tolerance.
	est := time.FixedZone("EST", -5*60*60)
	record := makeRecord(14, -42100)
	record.Date = time.Date(2025, 10, 14, 0, 0, 0, 0, est)

	matches := m.Match(
		[]*extractor.PurchaseRecord{record},
		[]*ynab.Transaction{makeTransaction("tx1", 10, -42100)},
	)

	require.Len(t, matches, 1)
	assert.Equal(t, "tx1", matches[0].TransactionID)
}

func TestMatcher_AmountToleranceBoundary(t *testing.T) {
	m := New(DefaultConfig())
	records := []*extractor.PurchaseRecord{makeRecord(10, -42100)}

	// Exactly at the 500-milliunit tolerance: accepted.
	matches := m.Match(records, []*ynab.Transaction{makeTransaction("tx1", 10, -42600)})
	require.Len(t, matches, 1)

	// One milliunit beyond: rejected.
	matches = m.Match(records, []*ynab.Transaction{makeTransaction("tx1", 10, -42601)})
	assert.Empty(t, matches)
}

func TestMatcher_SignConventionCancelled(t *testing.T) {
	// Records are negative milliunits, but a positively-signed transaction
	// with the same magnitude still matches: only magnitudes compare.
	m := New(DefaultConfig())

	records := []*extractor.PurchaseRecord{makeRecord(10, -42100)}
	transactions := []*ynab.Transaction{makeTransaction("tx1", 10, 42100)}

	matches := m.Match(records, transactions)
	require.Len(t, matches, 1)
	assert.Equal(t, "tx1", matches[0].TransactionID)
}

func TestMatcher_AnnotatedAndDeletedExcluded(t *testing.T) {
	m := New(DefaultConfig())
	records := []*extractor.PurchaseRecord{makeRecord(10, -42100)}

	annotated := makeTransaction("tx1", 10, -42100)
	annotated.Memo = "Widget A"
	deleted := makeTransaction("tx2", 10, -42100)
	deleted.Deleted = true

	matches := m.Match(records, []*ynab.Transaction{annotated, deleted})
	assert.Empty(t, matches)
}

func TestMatcher_Exclusivity(t *testing.T) {
	// Two records both within tolerance of one transaction: only one may
	// consume it.
	m := New(DefaultConfig())

	records := []*extractor.PurchaseRecord{
		makeRecord(12, -42100),
		makeRecord(11, -42100),
	}
	transactions := []*ynab.Transaction{makeTransaction("tx1", 10, -42100)}

	matches := m.Match(records, transactions)

	require.Len(t, matches, 1)
	// The second record is one day away versus two: it ranks higher.
	assert.Same(t, records[1], matches[0].Record)
}

func TestMatcher_PerfectMatchPriority(t *testing.T) {
	m := New(DefaultConfig())

	records := []*extractor.PurchaseRecord{
		makeRecord(10, -42100),
		makeRecord(10, -10000),
	}
	transactions := []*ynab.Transaction{
		makeTransaction("near", 11, -42100),
		makeTransaction("perfect", 10, -42100),
		makeTransaction("other", 10, -10000),
	}

	matches := m.Match(records, transactions)

	require.Len(t, matches, 2)
	assert.Equal(t, "perfect", matches[0].TransactionID)
	assert.Same(t, records[0], matches[0].Record)
	assert.Equal(t, "other", matches[1].TransactionID)
}

func TestMatcher_PerfectMatchLeavesTransactionContested(t *testing.T) {
	// A perfect match stops the record's own scan but does not reserve the
	// transaction; a later record may still generate a candidate for it.
	// The global ranking then awards it to the perfect pair.
	m := New(DefaultConfig())

	records := []*extractor.PurchaseRecord{
		makeRecord(11, -42100), // one day off
		makeRecord(10, -42100), // perfect
	}
	transactions := []*ynab.Transaction{makeTransaction("tx1", 10, -42100)}

	matches := m.Match(records, transactions)

	require.Len(t, matches, 1)
	assert.Same(t, records[1], matches[0].Record)
}

func TestMatcher_TieBreakByInsertionOrder(t *testing.T) {
	// Equal deltas everywhere: the earlier record wins, and within one
	// record the earlier transaction wins.
	m := New(DefaultConfig())

	records := []*extractor.PurchaseRecord{
		makeRecord(10, -42100),
		makeRecord(10, -42100),
	}
	transactions := []*ynab.Transaction{
		makeTransaction("tx1", 11, -42100),
		makeTransaction("tx2", 11, -42100),
	}

	matches := m.Match(records, transactions)

	require.Len(t, matches, 2)
	assert.Equal(t, "tx1", matches[0].TransactionID)
	assert.Same(t, records[0], matches[0].Record)
	assert.Equal(t, "tx2", matches[1].TransactionID)
	assert.Same(t, records[1], matches[1].Record)
}

func TestMatcher_Determinism(t *testing.T) {
	m := New(DefaultConfig())

	records := []*extractor.PurchaseRecord{
		makeRecord(10, -42100),
		makeRecord(11, -42100),
		makeRecord(12, -10000),
	}
	transactions := []*ynab.Transaction{
		makeTransaction("tx1", 11, -42100),
		makeTransaction("tx2", 12, -42100),
		makeTransaction("tx3", 12, -10000),
	}

	first := m.Match(records, transactions)
	second := m.Match(records, transactions)

	assert.Equal(t, first, second)
}

func TestMatcher_NoDoubleConsumption(t *testing.T) {
	m := New(DefaultConfig())

	records := []*extractor.PurchaseRecord{
		makeRecord(10, -42100),
		makeRecord(10, -42100),
		makeRecord(10, -42100),
	}
	transactions := []*ynab.Transaction{
		makeTransaction("tx1", 10, -42100),
		makeTransaction("tx2", 11, -42100),
	}

	matches := m.Match(records, transactions)

	require.Len(t, matches, 2)
	seenTx := make(map[string]bool)
	seenRecord := make(map[*extractor.PurchaseRecord]bool)
	for _, match := range matches {
		assert.False(t, seenTx[match.TransactionID], "transaction matched twice")
		assert.False(t, seenRecord[match.Record], "record matched twice")
		seenTx[match.TransactionID] = true
		seenRecord[match.Record] = true
	}
}

func TestMatcher_EmptyInputs(t *testing.T) {
	m := New(DefaultConfig())

	assert.Empty(t, m.Match(nil, []*ynab.Transaction{makeTransaction("tx1", 10, -42100)}))
	assert.Empty(t, m.Match([]*extractor.PurchaseRecord{makeRecord(10, -42100)}, nil))
}

func TestMatcher_CustomConfig(t *testing.T) {
	m := New(Config{
		DateTolerance:   1 * 24 * time.Hour,
		AmountTolerance: 0,
	})

	records := []*extractor.PurchaseRecord{makeRecord(10, -42100)}

	// Within default tolerance but not the tighter one.
	matches := m.Match(records, []*ynab.Transaction{makeTransaction("tx1", 13, -42100)})
	assert.Empty(t, matches)

	matches = m.Match(records, []*ynab.Transaction{makeTransaction("tx1", 11, -42100)})
	assert.Len(t, matches, 1)
}
