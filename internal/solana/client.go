// Package solana provides a thin JSON-RPC client for the node endpoints
// the bot depends on.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks JSON-RPC to a Solana node over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a Client for the given RPC endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("solana: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("solana: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("solana: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solana: %s returned status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("solana: decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("solana: %s failed: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("solana: parse %s result: %w", method, err)
		}
	}
	return nil
}

// GetSlot returns the node's current slot.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := c.call(ctx, "getSlot", nil, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

type prioritizationFee struct {
	Slot              uint64 `json:"slot"`
	PrioritizationFee uint64 `json:"prioritizationFee"`
}

// RecentPrioritizationFees returns per-slot prioritization fees observed
// by the node, in micro-lamports per compute unit.
func (c *Client) RecentPrioritizationFees(ctx context.Context) ([]uint64, error) {
	var raw []prioritizationFee
	if err := c.call(ctx, "getRecentPrioritizationFees", nil, &raw); err != nil {
		return nil, err
	}
	fees := make([]uint64, 0, len(raw))
	for _, f := range raw {
		fees = append(fees, f.PrioritizationFee)
	}
	return fees, nil
}

// SimulationResult is the outcome of a transaction dry run.
type SimulationResult struct {
	Err           interface{} `json:"err"`
	Logs          []string    `json:"logs"`
	UnitsConsumed uint64      `json:"unitsConsumed"`
}

// Failed reports whether the simulated transaction would have errored.
func (r SimulationResult) Failed() bool {
	return r.Err != nil
}

type simulateResponse struct {
	Value SimulationResult `json:"value"`
}

// SimulateTransaction dry-runs a base64-encoded transaction against the
// node's current bank state.
func (c *Client) SimulateTransaction(ctx context.Context, txBase64 string) (SimulationResult, error) {
	params := []interface{}{
		txBase64,
		map[string]interface{}{"encoding": "base64"},
	}
	var resp simulateResponse
	if err := c.call(ctx, "simulateTransaction", params, &resp); err != nil {
		return SimulationResult{}, err
	}
	return resp.Value, nil
}

// SendTransaction broadcasts a signed base64-encoded transaction and
// returns its signature. Preflight stays enabled; the simulation path
// has already vetted the transaction by the time it gets here.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	params := []interface{}{
		txBase64,
		map[string]interface{}{"encoding": "base64"},
	}
	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}
