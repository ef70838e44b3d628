package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// AirdropRequest is one funding request to the faucet.
type AirdropRequest struct {
	Address      string  `json:"address"`
	Network      string  `json:"network"` // "devnet" or "testnet"
	Amount       float64 `json:"amount"`
	CaptchaToken string  `json:"captcha_token,omitempty"`
}

// AirdropResult is the outcome of a successful airdrop request.
type AirdropResult struct {
	Message   string  `json:"message"`
	Signature string  `json:"signature"`
	Amount    float64 `json:"amount"`
}

// Transaction is one entry in the faucet's recent-transaction ledger.
type Transaction struct {
	Address   string    `json:"address"`
	Amount    string    `json:"amount"` // e.g. "1 SOL"
	Timestamp time.Time `json:"timestamp"`
	Signature string    `json:"signature"`
	Network   string    `json:"network"`
}

// Allowance reports what an address may still receive within the current window.
type Allowance struct {
	Address      string  `json:"address"`
	RemainingSOL float64 `json:"remaining_sol"`
	WaitSeconds  int64   `json:"wait_seconds"`
}

// NetworkStatus is the most recent health sample for a network.
type NetworkStatus struct {
	Network   string `json:"network"`
	Status    string `json:"status"` // operational, degraded, error
	LatencyMS int64  `json:"latency_ms"`
}

// Balance is an account's SOL balance on a network.
type Balance struct {
	Address    string  `json:"address"`
	Network    string  `json:"network"`
	BalanceSOL float64 `json:"balance_sol"`
}

// APIError is a structured rejection from the airdrop endpoint. The Code
// distinguishes user errors (invalid wallet, rate limited) from service
// failures (dispatch failed).
type APIError struct {
	Code              string  `json:"error"`
	Message           string  `json:"message"`
	RetryAfterSeconds int64   `json:"retry_after_seconds,omitempty"`
	RemainingSOL      float64 `json:"remaining_sol,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// Client is the HTTP client for the soldrip faucet service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new faucet service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// RequestAirdrop asks the faucet to fund a wallet. A rejection decodes into
// an *APIError so callers can inspect the code and retry-after hint.
func (c *Client) RequestAirdrop(ctx context.Context, req AirdropRequest) (*AirdropResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/airdrops", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseAirdropError(resp)
	}

	var result AirdropResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("airdrop granted", "address", req.Address, "signature", result.Signature)
	return &result, nil
}

// Transactions retrieves recent ledger entries, newest first. A limit of 0
// requests the server's full retained window.
func (c *Client) Transactions(ctx context.Context, limit int) ([]Transaction, error) {
	u := c.baseURL + "/api/v1/transactions"
	if limit > 0 {
		u += "?limit=" + url.QueryEscape(fmt.Sprintf("%d", limit))
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Transactions, nil
}

// ClearTransactions empties the server's transaction ledger.
func (c *Client) ClearTransactions(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+"/api/v1/transactions", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("transaction ledger cleared")
	return nil
}

// Allowance retrieves the remaining window allowance for an address.
func (c *Client) Allowance(ctx context.Context, address string) (*Allowance, error) {
	u := fmt.Sprintf("%s/api/v1/allowance/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result Allowance
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Status retrieves the most recent health sample for a network.
func (c *Client) Status(ctx context.Context, network string) (*NetworkStatus, error) {
	u := fmt.Sprintf("%s/api/v1/status?network=%s", c.baseURL, url.QueryEscape(network))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result NetworkStatus
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Balance retrieves an account's SOL balance on a network.
func (c *Client) Balance(ctx context.Context, address, network string) (*Balance, error) {
	u := fmt.Sprintf("%s/api/v1/balance/%s?network=%s", c.baseURL, url.PathEscape(address), url.QueryEscape(network))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result Balance
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// parseAirdropError decodes the structured airdrop rejection shape.
func (c *Client) parseAirdropError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return &apiErr
}

// parseErrorResponse attempts to parse a plain JSON error response.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
