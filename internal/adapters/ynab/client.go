// Package ynab is a minimal client for the YNAB v1 API, covering the three
// calls reconciliation needs: budget resolution, delta transaction sync, and
// batch memo updates.
package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"
)

const defaultBaseURL = "https://api.ynab.com/v1"

// Client talks to the YNAB API.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// NewClient creates a YNAB client with retrying transport.
func NewClient(token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil

	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		http:    rc,
		logger:  logger,
	}
}

// SetBaseURL overrides the API base URL, for tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// ResolveBudget looks up a budget ID by name. A budget that cannot be
// resolved is a configuration error and fatal to startup.
func (c *Client) ResolveBudget(ctx context.Context, name string) (string, error) {
	var resp struct {
		Data struct {
			Budgets []Budget `json:"budgets"`
		} `json:"data"`
	}

	if err := c.do(ctx, http.MethodGet, "/budgets", nil, &resp); err != nil {
		return "", fmt.Errorf("failed to list budgets: %w", err)
	}

	for _, b := range resp.Data.Budgets {
		if b.Name == name {
			return b.ID, nil
		}
	}

	return "", fmt.Errorf("budget %q not found", name)
}

// ForBudget returns a client scoped to one budget.
func (c *Client) ForBudget(budgetID string) *BudgetClient {
	return &BudgetClient{client: c, budgetID: budgetID}
}

// BudgetClient is a Client scoped to a single budget.
type BudgetClient struct {
	client   *Client
	budgetID string
}

// SyncTransactions fetches transactions changed since the given server
// knowledge. Pass zero for a full sync. Returns the delta, including
// deletion tombstones, and the new server knowledge cursor.
func (b *BudgetClient) SyncTransactions(ctx context.Context, serverKnowledge int64) ([]*Transaction, int64, error) {
	path := "/budgets/" + b.budgetID + "/transactions"
	if serverKnowledge > 0 {
		path += "?last_knowledge_of_server=" + strconv.FormatInt(serverKnowledge, 10)
	}

	var resp struct {
		Data struct {
			Transactions    []*Transaction `json:"transactions"`
			ServerKnowledge int64          `json:"server_knowledge"`
		} `json:"data"`
	}

	if err := b.client.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, fmt.Errorf("failed to sync transactions: %w", err)
	}

	b.client.logger.Debug("synced transactions",
		"count", len(resp.Data.Transactions),
		"server_knowledge", resp.Data.ServerKnowledge,
	)

	return resp.Data.Transactions, resp.Data.ServerKnowledge, nil
}

// UpdateTransactions applies a batch of memo updates.
func (b *BudgetClient) UpdateTransactions(ctx context.Context, updates []TransactionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	body := struct {
		Transactions []TransactionUpdate `json:"transactions"`
	}{Transactions: updates}

	path := "/budgets/" + b.budgetID + "/transactions"
	if err := b.client.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("failed to update transactions: %w", err)
	}

	b.client.logger.Debug("updated transactions", "count", len(updates))
	return nil
}

// do executes one API request, encoding body and decoding the response
// into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ynab API %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
