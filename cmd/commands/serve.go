package commands

// Command to run the full service: webhook HTTP server, Telegram command
// handler, optional chain-subscription listener and the dedup sweep ticker.
// Implements graceful shutdown for proper termination.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pumpwatch/internal/bot"
	"pumpwatch/internal/clients_api/helius"
	"pumpwatch/internal/clients_api/pumpportal"
	"pumpwatch/internal/dispatch"
	"pumpwatch/internal/filters"
	"pumpwatch/internal/infra/config"
	logging "pumpwatch/internal/infra/log"
	"pumpwatch/internal/pipeline"
	"pumpwatch/internal/server"
	"pumpwatch/internal/solana"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and Telegram bot",
	Long: `Run the complete service: the Helius webhook endpoint, the Telegram
command handler driving the filter configuration, and (optionally) the
logsSubscribe listener as a second event source.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tgBot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logging.LogSuccess("Telegram bot authorized", zap.String("username", tgBot.Self.UserName))

	notifier, err := dispatch.NewTelegramNotifier(tgBot, cfg.Telegram.ChatID)
	if err != nil {
		return err
	}

	heliusClient := helius.NewClient(cfg.Helius.APIKey,
		helius.WithTimeout(time.Duration(cfg.Helius.RequestTimeout)*time.Second),
		helius.WithMaxRetries(cfg.Helius.MaxRetries),
	)

	var executor dispatch.TradeExecutor
	if cfg.Snipe.WalletKey != "" {
		executor = pumpportal.NewClient(cfg.Snipe.WalletKey)
	}

	store := filters.NewDefaultStore()
	guard := pipeline.NewDedupGuard(time.Duration(cfg.App.DedupRetentionMin) * time.Minute)
	normalizer := pipeline.NewNormalizer(heliusClient)
	dispatcher := dispatch.NewDispatcher(notifier, executor, cfg.Snipe.AutoSnipe, cfg.Snipe.AmountSol)
	pipe := pipeline.New(normalizer, store, guard, dispatcher, cfg.Snipe.BypassFilters)

	if cfg.Snipe.BypassFilters {
		logging.LogWarn("Filter bypass is ON, every token will alert")
	}

	var wg sync.WaitGroup

	chatID, _ := dispatch.ParseChatID(cfg.Telegram.ChatID)
	handler := bot.NewHandler(tgBot, chatID, store, normalizer, executor, cfg.Snipe.AmountSol)
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.Run(ctx)
	}()

	if cfg.App.EnableWSListener {
		endpoint := fmt.Sprintf("wss://mainnet.helius-rpc.com/?api-key=%s", cfg.Helius.APIKey)
		listener := solana.NewListener(endpoint, pipeline.PumpFunProgramID, pipe, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Run(ctx)
		}()
	}

	if cfg.App.DedupRetentionMin > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := guard.Sweep(); n > 0 {
						logging.LogDebug("Dedup records evicted", zap.Int("count", n))
					}
				}
			}
		}()
	}

	if err := notifier.SendText(ctx, "🚀 Bot started! Waiting for Pump.fun token alerts..."); err != nil {
		logging.LogWarn("Failed to send startup notice", zap.Error(err))
	}

	err = server.New(ctx, pipe).ListenAndServe(ctx, cfg.App.Port)
	cancel()
	wg.Wait()
	logging.LogSuccess("Shutdown complete")
	return err
}
