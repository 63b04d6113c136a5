package ynab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("test-token", nil)
	c.SetBaseURL(server.URL)
	return c
}

func TestResolveBudget(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"data":{"budgets":[
			{"id":"b-1","name":"Household"},
			{"id":"b-2","name":"Business"}
		]}}`))
	})

	id, err := c.ResolveBudget(context.Background(), "Business")
	require.NoError(t, err)
	assert.Equal(t, "b-2", id)
}

func TestResolveBudget_NotFoundIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"budgets":[]}}`))
	})

	_, err := c.ResolveBudget(context.Background(), "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSyncTransactions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets/b-1/transactions", r.URL.Path)
		assert.Equal(t, "1234", r.URL.Query().Get("last_knowledge_of_server"))

		_, _ = w.Write([]byte(`{"data":{
			"transactions":[
				{"id":"t-1","date":"2025-10-10","amount":-42100,"payee_name":"Amazon","memo":"","deleted":false},
				{"id":"t-2","date":"2025-10-11","amount":-10000,"memo":null,"deleted":true}
			],
			"server_knowledge":1300
		}}`))
	})

	transactions, knowledge, err := c.ForBudget("b-1").SyncTransactions(context.Background(), 1234)
	require.NoError(t, err)

	assert.Equal(t, int64(1300), knowledge)
	require.Len(t, transactions, 2)

	assert.Equal(t, "t-1", transactions[0].ID)
	assert.Equal(t, int64(-42100), transactions[0].Amount)
	assert.Equal(t, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), transactions[0].Date.Time)
	assert.False(t, transactions[0].Deleted)

	// Null memo decodes to the empty string, the unreconciled state.
	assert.Empty(t, transactions[1].Memo)
	assert.True(t, transactions[1].Deleted)
}

func TestSyncTransactions_FullSyncOmitsCursor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("last_knowledge_of_server"))
		_, _ = w.Write([]byte(`{"data":{"transactions":[],"server_knowledge":1}}`))
	})

	_, _, err := c.ForBudget("b-1").SyncTransactions(context.Background(), 0)
	require.NoError(t, err)
}

func TestUpdateTransactions(t *testing.T) {
	var got struct {
		Transactions []TransactionUpdate `json:"transactions"`
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/budgets/b-1/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"transactions":[]}}`))
	})

	updates := []TransactionUpdate{
		{ID: "t-1", Memo: "Widget A; Widget B", Approved: false},
	}
	require.NoError(t, c.ForBudget("b-1").UpdateTransactions(context.Background(), updates))

	require.Len(t, got.Transactions, 1)
	assert.Equal(t, "t-1", got.Transactions[0].ID)
	assert.Equal(t, "Widget A; Widget B", got.Transactions[0].Memo)
	assert.False(t, got.Transactions[0].Approved)
}

func TestUpdateTransactions_EmptyBatchIsNoop(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	require.NoError(t, c.ForBudget("b-1").UpdateTransactions(context.Background(), nil))
	assert.False(t, called)
}

func TestDo_ErrorStatusSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"id":"401","name":"unauthorized"}}`))
	})

	_, err := c.ResolveBudget(context.Background(), "Household")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestDate_RoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalJSON([]byte(`"2025-10-10"`)))
	assert.Equal(t, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), d.Time)

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2025-10-10"`, string(out))
}
