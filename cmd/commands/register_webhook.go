package commands

// One-shot command registering the Helius webhook that feeds /webhook.

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pumpwatch/internal/clients_api/helius"
	"pumpwatch/internal/infra/config"
	logging "pumpwatch/internal/infra/log"
	"pumpwatch/internal/pipeline"
)

var registerWebhookCmd = &cobra.Command{
	Use:   "register-webhook",
	Short: "Register the Helius webhook pointing at this service",
	Long: `Register an enhanced Helius webhook for the pump.fun program that posts
event batches to <WEBHOOK_URL>/webhook. Requires WEBHOOK_URL to be the
service's public root URL.`,
	RunE: runRegisterWebhook,
}

func runRegisterWebhook(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Helius.WebhookBaseURL == "" {
		return fmt.Errorf("helius.webhook_base_url is required (WEBHOOK_URL)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client := helius.NewClient(cfg.Helius.APIKey,
		helius.WithTimeout(time.Duration(cfg.Helius.RequestTimeout)*time.Second),
		helius.WithMaxRetries(cfg.Helius.MaxRetries),
	)

	hook, err := client.RegisterWebhook(ctx,
		cfg.Helius.WebhookBaseURL+"/webhook",
		[]string{pipeline.PumpFunProgramID})
	if err != nil {
		logging.LogError("Webhook registration failed", zap.Error(err))
		return err
	}

	fmt.Printf("Webhook registered: %s -> %s\n", hook.WebhookID, hook.WebhookURL)
	return nil
}
