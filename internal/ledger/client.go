// Package ledger is the request/response boundary to the external ledger
// service that executes token transfers. It is glue: nothing here touches
// relay state.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/walletwire/walletwire/internal/metrics"
)

var ErrTransferFailed = errors.New("ledger transfer failed")

// TransferRequest is what the ledger service expects.
type TransferRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// TransferResult carries the transaction signature on success.
type TransferResult struct {
	Signature string `json:"signature"`
	Error     string `json:"error,omitempty"`
}

// Client calls the ledger service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a ledger client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Transfer sends amount to recipientAddress and returns the transaction
// signature. Synchronous; the ledger service does the actual chain work.
func (c *Client) Transfer(ctx context.Context, recipientAddress string, amount uint64) (string, error) {
	if recipientAddress == "" {
		return "", fmt.Errorf("%w: recipient is required", ErrTransferFailed)
	}
	if amount == 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrTransferFailed)
	}

	body, err := json.Marshal(TransferRequest{Recipient: recipientAddress, Amount: amount})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfer", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.LedgerTransfers.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	var result TransferResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.LedgerTransfers.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: malformed response", ErrTransferFailed)
	}

	if resp.StatusCode != http.StatusOK || result.Signature == "" {
		metrics.LedgerTransfers.WithLabelValues("error").Inc()
		if result.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrTransferFailed, result.Error)
		}
		return "", fmt.Errorf("%w: status %d", ErrTransferFailed, resp.StatusCode)
	}

	metrics.LedgerTransfers.WithLabelValues("ok").Inc()
	return result.Signature, nil
}
