package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/curvewatch/internal/logger"
	"github.com/wnt/curvewatch/internal/metrics"
)

// Request represents a JSON RPC request
type Request struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// Response represents a JSON RPC response
type Response struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *ResponseError  `json:"error"`
}

// ResponseError represents an RPC-level error
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SignatureInfo describes one entry from getSignaturesForAddress
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Err       any    `json:"err"`
}

// TokenTransfer describes one transfer from the provider's DAS-style
// batch transfer endpoint
type TokenTransfer struct {
	Signature    string  `json:"signature"`
	Mint         string  `json:"mint"`
	Direction    string  `json:"direction"` // mint, burn, transfer
	AmountTokens float64 `json:"amount"`
	FromAccount  string  `json:"fromUserAccount"`
	ToAccount    string  `json:"toUserAccount"`
	BlockTime    int64   `json:"blockTime"`
}

// Client sends JSON-RPC requests against the endpoint pool with bounded
// retry. Only throttling (429) and client-side timeouts are retried;
// other failures come back as Rejected so the caller can degrade without
// burning quota on a request the provider will keep refusing.
type Client struct {
	pool       *Pool
	maxRetries int
	baseDelay  time.Duration
	logger     zerolog.Logger
}

// NewClient creates a new rate-limited RPC client
func NewClient(pool *Pool, maxRetries int, baseDelay time.Duration, logger zerolog.Logger) *Client {
	if maxRetries < 1 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Client{
		pool:       pool,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger.With().Str("component", "rpc_client").Logger(),
	}
}

// Call performs a JSON-RPC call and unmarshals the result into out.
// action names the operation and key is the normalized request key; both
// are carried into logs and errors.
func (c *Client) Call(ctx context.Context, action, key, method string, params []interface{}, out interface{}) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			// Linear backoff: delay grows with the attempt number
			delay := c.baseDelay * time.Duration(attempt-1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				metrics.RecordRPCRequest("cancelled")
				return ctx.Err()
			}
		}

		retryable, err := c.callOnce(ctx, action, key, method, params, out)
		if err == nil {
			metrics.RecordRPCRequest("success")
			return nil
		}
		if !retryable {
			metrics.RecordRPCRequest("rejected")
			return err
		}

		lastErr = err
		c.logger.Warn().
			Err(err).
			Str("action", action).
			Str("key", key).
			Int("attempt", attempt).
			Int("max_retries", c.maxRetries).
			Msg("Transient RPC failure, will retry")
	}

	metrics.RecordRPCRequest("retry_exhausted")
	return &Error{
		Kind:   KindRetryExhausted,
		Action: action,
		Key:    key,
		Err:    fmt.Errorf("gave up after %d attempts: %w", c.maxRetries, lastErr),
	}
}

// callOnce performs a single attempt. The bool reports whether the
// failure is retryable (429 or timeout).
func (c *Client) callOnce(ctx context.Context, action, key, method string, params []interface{}, out interface{}) (bool, error) {
	client, endpoint, err := c.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire RPC endpoint: %w", err)
	}

	request := Request{
		Jsonrpc: "2.0",
		ID:      "curvewatch",
		Method:  method,
		Params:  params,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return false, fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return false, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return true, fmt.Errorf("request to %s timed out: %w", endpoint, err)
		}
		c.pool.MarkUnhealthy(endpoint)
		return false, c.reject(action, key, endpoint, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.pool.SetCooldown(endpoint, 1*time.Minute)
		return true, fmt.Errorf("rate limited by %s", endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		c.pool.MarkUnhealthy(endpoint)
		return false, c.reject(action, key, endpoint, resp.StatusCode,
			fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, c.reject(action, key, endpoint, resp.StatusCode,
			fmt.Errorf("failed to read response body: %w", err))
	}

	var rpcResponse Response
	if err := json.Unmarshal(body, &rpcResponse); err != nil {
		return false, c.reject(action, key, endpoint, resp.StatusCode,
			fmt.Errorf("failed to unmarshal RPC response: %w", err))
	}

	if rpcResponse.Error != nil {
		return false, c.reject(action, key, endpoint, resp.StatusCode,
			fmt.Errorf("RPC error code %d: %s", rpcResponse.Error.Code, rpcResponse.Error.Message))
	}

	if out != nil {
		if err := json.Unmarshal(rpcResponse.Result, out); err != nil {
			return false, c.reject(action, key, endpoint, resp.StatusCode,
				fmt.Errorf("failed to unmarshal result: %w", err))
		}
	}

	c.pool.MarkHealthy(endpoint)
	return false, nil
}

// reject logs a non-retryable failure with full request context and
// wraps it as a Rejected error
func (c *Client) reject(action, key, endpoint string, status int, err error) error {
	l := logger.WithRPCEndpoint(c.logger, endpoint)
	l.Error().
		Err(err).
		Str("action", action).
		Str("key", key).
		Int("status", status).
		Msg("RPC request rejected")

	return &Error{
		Kind:     KindRejected,
		Action:   action,
		Key:      key,
		Endpoint: endpoint,
		Status:   status,
		Err:      err,
	}
}

// isTimeout reports whether err is a client-side timeout
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// GetSignaturesForAddress fetches recent transaction signatures for an
// account, newest first.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	params := []interface{}{
		address,
		map[string]interface{}{
			"limit":      limit,
			"commitment": "confirmed",
		},
	}

	var signatures []SignatureInfo
	if err := c.Call(ctx, "get_signatures", address, "getSignaturesForAddress", params, &signatures); err != nil {
		return nil, err
	}
	return signatures, nil
}

// GetTokenTransfers fetches recent transfers for a batch of mint
// addresses through the provider's DAS-style endpoint.
func (c *Client) GetTokenTransfers(ctx context.Context, mints []string, limit int) ([]TokenTransfer, error) {
	if len(mints) == 0 {
		return nil, nil
	}

	params := []interface{}{
		mints,
		map[string]interface{}{
			"limit":      limit,
			"commitment": "confirmed",
		},
	}

	key := mints[0]
	if len(mints) > 1 {
		key = fmt.Sprintf("%s+%d", mints[0], len(mints)-1)
	}

	var transfers []TokenTransfer
	if err := c.Call(ctx, "get_token_transfers", key, "getTokenTransfers", params, &transfers); err != nil {
		return nil, err
	}
	return transfers, nil
}
