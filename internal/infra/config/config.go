package config

// Layered configuration: defaults -> config.yaml -> .env -> environment ->
// flags. Values are read once at startup and passed into components
// explicitly; nothing re-reads the environment at runtime.

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Helius   HeliusConfig   `mapstructure:"helius"`
	Snipe    SnipeConfig    `mapstructure:"snipe"`
	App      AppConfig      `mapstructure:"app"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"` // alert + command chat
}

// HeliusConfig covers the RPC/metadata provider and webhook management.
type HeliusConfig struct {
	APIKey         string `mapstructure:"api_key"`
	WebhookBaseURL string `mapstructure:"webhook_base_url"` // public root URL, no trailing slash
	RequestTimeout int    `mapstructure:"request_timeout"`  // seconds
	MaxRetries     int    `mapstructure:"max_retries"`
}

// SnipeConfig holds the operator switches the pipeline consumes.
type SnipeConfig struct {
	BypassFilters bool    `mapstructure:"bypass_filters"` // treat every token as matching
	AutoSnipe     bool    `mapstructure:"auto_snipe"`
	AmountSol     float64 `mapstructure:"amount_sol"` // fixed buy size per alert
	WalletKey     string  `mapstructure:"wallet_key"` // signer key for the trade executor
}

type AppConfig struct {
	Port              int  `mapstructure:"port"`
	DedupRetentionMin int  `mapstructure:"dedup_retention_min"` // 0 = keep records for process lifetime
	EnableWSListener  bool `mapstructure:"enable_ws_listener"`  // logsSubscribe source next to the webhook
}

// LoadConfig resolves configuration in precedence order:
// defaults, then config.yaml, then .env, then environment, then flags.
func LoadConfig() (*Config, error) {
	godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.ReadInConfig() // optional file

	v.AutomaticEnv()
	setupEnvAliases(v)
	setupFlags(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Helius.WebhookBaseURL = strings.TrimRight(config.Helius.WebhookBaseURL, "/")

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// setupEnvAliases keeps the flat env names the service has always used.
func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	v.BindEnv("helius.api_key", "HELIUS_API_KEY")
	v.BindEnv("helius.webhook_base_url", "WEBHOOK_URL")
	v.BindEnv("helius.request_timeout", "HELIUS_REQUEST_TIMEOUT")
	v.BindEnv("helius.max_retries", "HELIUS_MAX_RETRIES")

	v.BindEnv("snipe.bypass_filters", "BYPASS_FILTERS")
	v.BindEnv("snipe.auto_snipe", "AUTO_SNIPE")
	v.BindEnv("snipe.amount_sol", "SNIPE_AMOUNT_SOL")
	v.BindEnv("snipe.wallet_key", "PRIVATE_KEY")

	v.BindEnv("app.port", "PORT")
	v.BindEnv("app.dedup_retention_min", "DEDUP_RETENTION_MIN")
	v.BindEnv("app.enable_ws_listener", "ENABLE_WS_LISTENER")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "-1002511600127")

	v.SetDefault("helius.api_key", "")
	v.SetDefault("helius.webhook_base_url", "")
	v.SetDefault("helius.request_timeout", 10)
	v.SetDefault("helius.max_retries", 2)

	v.SetDefault("snipe.bypass_filters", false)
	v.SetDefault("snipe.auto_snipe", false)
	v.SetDefault("snipe.amount_sol", 0.1)
	v.SetDefault("snipe.wallet_key", "")

	v.SetDefault("app.port", 10000)
	v.SetDefault("app.dedup_retention_min", 0)
	v.SetDefault("app.enable_ws_listener", false)
}

func setupFlags(v *viper.Viper) {
	if pflag.Lookup("telegram.bot_token") == nil {
		pflag.String("telegram.bot_token", "", "Telegram bot token (env: TELEGRAM_BOT_TOKEN)")
		pflag.String("telegram.chat_id", "-1002511600127", "Telegram alert chat ID (env: TELEGRAM_CHAT_ID)")

		pflag.String("helius.api_key", "", "Helius API key (env: HELIUS_API_KEY)")
		pflag.String("helius.webhook_base_url", "", "Public base URL Helius posts webhooks to (env: WEBHOOK_URL)")
		pflag.Int("helius.request_timeout", 10, "Helius request timeout in seconds (env: HELIUS_REQUEST_TIMEOUT)")
		pflag.Int("helius.max_retries", 2, "Max retries for failed Helius requests (env: HELIUS_MAX_RETRIES)")

		pflag.Bool("snipe.bypass_filters", false, "Treat every token as matching (env: BYPASS_FILTERS)")
		pflag.Bool("snipe.auto_snipe", false, "Buy every qualifying token automatically (env: AUTO_SNIPE)")
		pflag.Float64("snipe.amount_sol", 0.1, "Fixed buy size in SOL (env: SNIPE_AMOUNT_SOL)")

		pflag.Int("app.port", 10000, "HTTP listen port (env: PORT)")
		pflag.Int("app.dedup_retention_min", 0, "Dedup record retention in minutes, 0 keeps forever (env: DEDUP_RETENTION_MIN)")
		pflag.Bool("app.enable_ws_listener", false, "Enable logsSubscribe listener (env: ENABLE_WS_LISTENER)")
	}

	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)
}

func validateConfig(cfg *Config) error {
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (TELEGRAM_BOT_TOKEN)")
	}
	if cfg.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required (TELEGRAM_CHAT_ID)")
	}
	if cfg.Helius.APIKey == "" {
		return fmt.Errorf("helius.api_key is required (HELIUS_API_KEY)")
	}
	if cfg.Snipe.AutoSnipe && cfg.Snipe.WalletKey == "" {
		return fmt.Errorf("snipe.wallet_key is required when auto-snipe is on (PRIVATE_KEY)")
	}
	if cfg.Snipe.AmountSol <= 0 {
		return fmt.Errorf("snipe.amount_sol must be positive, got %g", cfg.Snipe.AmountSol)
	}
	return nil
}
