package commands

// Root command for Cobra CLI
// Registers all subcommands (serve, register-webhook)

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pumpwatch",
	Short: "Pump.fun launch watcher - Telegram alerts for newly created tokens",
	Long: `Pumpwatch watches newly created tokens on pump.fun via Helius webhooks
and/or a logsSubscribe chain subscription, evaluates each against configurable
acceptance criteria, and dispatches at most one Telegram alert per qualifying
token, with optional automated buys.`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(registerWebhookCmd)
}
