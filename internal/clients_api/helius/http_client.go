package helius

// Package helius is the client for Helius RPC and REST APIs: token metadata
// lookups, mint account inspection and webhook management. Transport layer
// only; the pipeline decides what the answers mean.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	logging "pumpwatch/internal/infra/log"
	"pumpwatch/internal/infra/retry"
)

const (
	// RESTBaseURL serves the v0 REST API (metadata, webhooks).
	RESTBaseURL = "https://api.helius.xyz/v0"
	// RPCBaseURL serves JSON-RPC against mainnet.
	RPCBaseURL = "https://mainnet.helius-rpc.com"
)

// Client talks to Helius with rate limiting, a circuit breaker and bounded
// response reads.
type Client struct {
	apiKey          string
	restBaseURL     string
	rpcBaseURL      string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retryOpts       retry.Options
	maxResponseSize int64
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides both endpoints; tests point them at a local server.
func WithBaseURLs(restURL, rpcURL string) Option {
	return func(c *Client) {
		c.restBaseURL = restURL
		c.rpcBaseURL = rpcURL
	}
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets the retry budget for retryable responses.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.retryOpts.MaxRetries = n }
}

// NewClient creates a Helius client for the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		restBaseURL: RESTBaseURL,
		rpcBaseURL:  RPCBaseURL,
		// 10 rps, bursts to 20; Helius free tier sits at 10 rps.
		rateLimiter: rate.NewLimiter(rate.Limit(10), 20),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "HeliusAPI",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		retryOpts: retry.Options{
			MaxRetries: 2,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   5 * time.Second,
		},
		maxResponseSize: 10 * 1024 * 1024,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DisableKeepAlives: false,
				MaxIdleConns:      10,
				IdleConnTimeout:   90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// makeRequest sends one HTTP request through the limiter, breaker and retry
// wrappers. url must already carry the api-key query parameter.
func (c *Client) makeRequest(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	requestID := logging.GenerateRequestID()
	startTime := time.Now()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var respBody []byte
	err := retry.Do(ctx, c.retryOpts, func() error {
		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			b, err := c.doRequest(ctx, requestID, method, url, body)
			if err != nil {
				return nil, err
			}
			respBody = b
			return b, nil
		})
		return err
	})
	if err != nil {
		logging.LogError("Helius request failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.Error(err))
		return nil, err
	}

	logging.LogResponse(requestID, http.StatusOK, time.Since(startTime).Milliseconds())
	return respBody, nil
}

func (c *Client) doRequest(ctx context.Context, requestID, method, url string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logging.LogRequest(requestID, method, req.URL.Path)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogResponse(requestID, 0, time.Since(startTime).Milliseconds(), zap.Error(err))
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.LogResponse(requestID, resp.StatusCode, time.Since(startTime).Milliseconds())
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return respBody, nil
}

func (c *Client) restURL(path string) string {
	return fmt.Sprintf("%s%s?api-key=%s", c.restBaseURL, path, c.apiKey)
}

func (c *Client) rpcURL() string {
	return fmt.Sprintf("%s/?api-key=%s", c.rpcBaseURL, c.apiKey)
}

// rpcRequest / rpcResponse are the JSON-RPC 2.0 envelope.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// rpcCall performs one JSON-RPC method call and unmarshals result into out.
func (c *Client) rpcCall(ctx context.Context, method string, params []interface{}, out interface{}) error {
	respBody, err := c.makeRequest(ctx, http.MethodPost, c.rpcURL(), rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	var resp rpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("failed to unmarshal rpc response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("failed to unmarshal rpc result: %w", err)
		}
	}
	return nil
}
