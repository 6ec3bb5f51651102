package helius

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	logging "pumpwatch/internal/infra/log"
)

// WebhookRegistration is the body of POST /v0/webhooks.
type WebhookRegistration struct {
	WebhookURL       string   `json:"webhookURL"`
	TransactionTypes []string `json:"transactionTypes"`
	WebhookType      string   `json:"webhookType"`
	AccountAddresses []string `json:"accountAddresses"`
}

// Webhook is the registration record Helius returns.
type Webhook struct {
	WebhookID        string   `json:"webhookID"`
	WebhookURL       string   `json:"webhookURL"`
	TransactionTypes []string `json:"transactionTypes"`
	WebhookType      string   `json:"webhookType"`
	AccountAddresses []string `json:"accountAddresses"`
}

// RegisterWebhook points an enhanced webhook watching the launch program at
// webhookURL (the service's public /webhook endpoint).
func (c *Client) RegisterWebhook(ctx context.Context, webhookURL string, accountAddresses []string) (*Webhook, error) {
	if accountAddresses == nil {
		accountAddresses = []string{}
	}
	reg := WebhookRegistration{
		WebhookURL:       webhookURL,
		TransactionTypes: []string{"ALL"},
		WebhookType:      "enhanced",
		AccountAddresses: accountAddresses,
	}

	respBody, err := c.makeRequest(ctx, http.MethodPost, c.restURL("/webhooks"), reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register webhook: %w", err)
	}

	var hook Webhook
	if err := json.Unmarshal(respBody, &hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook response: %w", err)
	}

	logging.LogSuccess("Webhook registered",
		zap.String("webhook_id", hook.WebhookID),
		zap.String("url", hook.WebhookURL))
	return &hook, nil
}

// ListWebhooks returns the registrations attached to the API key.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	respBody, err := c.makeRequest(ctx, http.MethodGet, c.restURL("/webhooks"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	var hooks []Webhook
	if err := json.Unmarshal(respBody, &hooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhooks response: %w", err)
	}
	return hooks, nil
}
