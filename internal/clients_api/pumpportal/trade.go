package pumpportal

// Package pumpportal executes buys through the PumpPortal trade API. The
// wallet-linked API key signs and broadcasts server-side, so this client
// never touches transaction construction.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	logging "pumpwatch/internal/infra/log"
)

// BaseURL serves the lightning trade API.
const BaseURL = "https://pumpportal.fun/api"

// Client submits buy orders. Implements the dispatcher's TradeExecutor.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// slippagePct and priorityFeeSol ride along on every order.
	slippagePct    float64
	priorityFeeSol float64
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint; tests use it.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithSlippage sets the tolerated slippage percentage.
func WithSlippage(pct float64) Option {
	return func(c *Client) { c.slippagePct = pct }
}

// NewClient creates a trade client for the given wallet API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:         apiKey,
		baseURL:        BaseURL,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		slippagePct:    10,
		priorityFeeSol: 0.00005,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tradeRequest struct {
	Action           string  `json:"action"`
	Mint             string  `json:"mint"`
	Amount           float64 `json:"amount"`
	DenominatedInSol string  `json:"denominatedInSol"`
	Slippage         float64 `json:"slippage"`
	PriorityFee      float64 `json:"priorityFee"`
	Pool             string  `json:"pool"`
}

type tradeResponse struct {
	Signature string   `json:"signature"`
	Errors    []string `json:"errors"`
}

// Buy submits a market buy of amountSol worth of the mint and returns the
// transaction signature.
func (c *Client) Buy(ctx context.Context, address string, amountSol float64) (string, error) {
	if amountSol <= 0 {
		return "", fmt.Errorf("buy amount must be positive, got %g", amountSol)
	}

	body, err := json.Marshal(tradeRequest{
		Action:           "buy",
		Mint:             address,
		Amount:           amountSol,
		DenominatedInSol: "true",
		Slippage:         c.slippagePct,
		PriorityFee:      c.priorityFeeSol,
		Pool:             "pump",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal trade request: %w", err)
	}

	url := fmt.Sprintf("%s/trade?api-key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create trade request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("trade request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read trade response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("trade API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var trade tradeResponse
	if err := json.Unmarshal(respBody, &trade); err != nil {
		return "", fmt.Errorf("failed to unmarshal trade response: %w", err)
	}
	if len(trade.Errors) > 0 {
		return "", fmt.Errorf("trade rejected: %v", trade.Errors)
	}
	if trade.Signature == "" {
		return "", fmt.Errorf("trade response missing signature")
	}

	logging.LogInfo("Buy order submitted",
		zap.String("mint", address),
		zap.Float64("amount_sol", amountSol),
		zap.String("signature", trade.Signature),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return trade.Signature, nil
}
