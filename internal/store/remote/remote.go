// Package remote talks to the upstream finance store over HTTP. The
// upstream exposes whole-collection endpoints: transactions are always
// fetched and replaced as a single JSON array.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"duit/internal/core"
	applog "duit/internal/log"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *applog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *applog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// transactionRecord is the upstream wire format. Dates travel as
// YYYY-MM-DD strings, timestamps as RFC 3339.
type transactionRecord struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"createdAt"`
}

type userRecord struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func toRecord(tx core.Transaction) transactionRecord {
	return transactionRecord{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Kind),
		Amount:      tx.Amount.Units,
		Description: tx.Description,
		Date:        tx.Date.ISO(),
		CreatedAt:   tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func fromRecord(rec transactionRecord) (core.Transaction, error) {
	date, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", rec.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: parsing createdAt: %w", rec.ID, err)
	}
	return core.Transaction{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Kind:        core.Kind(rec.Type),
		Amount:      core.Money{Units: rec.Amount},
		Description: rec.Description,
		Date:        date,
		CreatedAt:   createdAt,
	}, nil
}

func (c *Client) FetchTransactions(ctx context.Context) ([]core.Transaction, error) {
	var records []transactionRecord
	if err := c.getJSON(ctx, "/transactions", &records); err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}
	txs := make([]core.Transaction, 0, len(records))
	for _, rec := range records {
		tx, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (c *Client) ReplaceTransactions(ctx context.Context, txs []core.Transaction) error {
	records := make([]transactionRecord, 0, len(txs))
	for _, tx := range txs {
		records = append(records, toRecord(tx))
	}
	if err := c.postJSON(ctx, "/transactions", records, nil); err != nil {
		return fmt.Errorf("replacing transactions: %w", err)
	}
	return nil
}

func (c *Client) FetchUsers(ctx context.Context) ([]core.Credential, error) {
	var records []userRecord
	if err := c.getJSON(ctx, "/users", &records); err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}
	creds := make([]core.Credential, 0, len(records))
	for _, rec := range records {
		createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("user %s: parsing createdAt: %w", rec.ID, err)
		}
		creds = append(creds, core.Credential{
			User: core.User{
				ID:        rec.ID,
				Username:  rec.Username,
				Role:      core.Role(rec.Role),
				CreatedAt: createdAt,
			},
			Password: rec.Password,
		})
	}
	return creds, nil
}

func (c *Client) CreateUser(ctx context.Context, cred core.Credential) error {
	rec := userRecord{
		ID:        cred.ID,
		Username:  cred.Username,
		Password:  cred.Password,
		Role:      string(cred.Role),
		CreatedAt: cred.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := c.postJSON(ctx, "/users", rec, nil); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	body := struct {
		ID string `json:"id"`
	}{ID: id}
	if err := c.postJSON(ctx, "/users/delete", body, nil); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Upstream returned error status",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode)
		return fmt.Errorf("%s %s: unexpected status %d: %s", req.Method, req.URL.Path, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
