// Package walletdata reads balances and chain-pending transactions of the connected wallet from the Solana gateway.
package walletdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/solanize/solanize-client/internal/utils"
)

const (
	walletTokensPath        = "/api/v1/wallet/tokens"
	pendingTransactionsPath = "/api/v1/transactions/pending"
	DefaultTimeout          = 30 * time.Second
)

var errEmptyData = errors.New("response has no data")

// Error is returned for every request the Solana gateway did not serve. StatusCode is 0 when the failure happened
// before or after the HTTP exchange. Rejected is set when the gateway answered with `success: false`.
type Error struct {
	StatusCode int
	Rejected   bool
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Permanent reports whether repeating the request cannot succeed.
func (e *Error) Permanent() bool {
	if e.Rejected {
		return true
	}
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

type API interface {
	WalletTokens(ctx context.Context, pubkey string) (*WalletTokens, error)
	PendingTransactions(ctx context.Context, pubkey string) (*PendingTransactions, error)
}

type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

var _ API = (*Client)(nil)

func NewClient(baseURL string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) WalletTokens(ctx context.Context, pubkey string) (*WalletTokens, error) {
	return request[WalletTokens](ctx, c, walletTokensPath, pubkeyRequest{Pubkey: pubkey})
}

func (c *Client) PendingTransactions(ctx context.Context, pubkey string) (*PendingTransactions, error) {
	return request[PendingTransactions](ctx, c, pendingTransactionsPath, pubkeyRequest{Pubkey: pubkey})
}

func request[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &Error{Message: "Network error or invalid response", Err: err}
	}
	defer utils.DeferredClose(ctx, resp.Body, "closing response body")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "Network error or invalid response", Err: fmt.Errorf("reading response body: %w", err)}
	}

	var result envelope[T]
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &Error{Message: "Network error or invalid response", Err: fmt.Errorf("unmarshalling response body: %w", err)}
	}
	if !result.Success {
		message := result.Error.ValueOrZero()
		if message == "" {
			message = "Unknown API error"
		}
		return nil, &Error{StatusCode: resp.StatusCode, Rejected: true, Message: message}
	}
	if result.Data == nil {
		return nil, &Error{Message: "Network error or invalid response", Err: errEmptyData}
	}
	return result.Data, nil
}
