package bot

// Telegram command surface. Drives the filter store (/filters, /setfilter,
// /setflag) and answers the inline buttons attached to alerts. Only the
// configured chat is listened to.

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pumpwatch/internal/dispatch"
	"pumpwatch/internal/filters"
	logging "pumpwatch/internal/infra/log"
	"pumpwatch/internal/pipeline"
)

// Handler owns the long-poll update loop.
type Handler struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	store      *filters.Store
	normalizer *pipeline.Normalizer
	executor   dispatch.TradeExecutor
	buyAmount  float64
}

// NewHandler wires the command surface. executor may be nil; the buy button
// then reports that trading is disabled.
func NewHandler(bot *tgbotapi.BotAPI, chatID int64, store *filters.Store, normalizer *pipeline.Normalizer, executor dispatch.TradeExecutor, buyAmount float64) *Handler {
	return &Handler{
		bot:        bot,
		chatID:     chatID,
		store:      store,
		normalizer: normalizer,
		executor:   executor,
		buyAmount:  buyAmount,
	}
}

// Run processes updates until ctx ends.
func (h *Handler) Run(ctx context.Context) {
	if h.bot == nil {
		logging.LogWarn("Bot is nil, command handler not started")
		return
	}

	logging.LogInfo("Starting command handler", zap.Int64("chat_id", h.chatID))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message == nil || update.CallbackQuery.Message.Chat.ID != h.chatID {
			return
		}
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.Chat.ID != h.chatID || !update.Message.IsCommand() {
		return
	}

	command := update.Message.Command()
	args := update.Message.CommandArguments()

	logging.LogDebug("Received command",
		zap.String("command", command),
		zap.String("args", args),
		zap.String("username", update.Message.From.UserName))

	switch command {
	case "filters":
		h.reply(update.Message, h.renderFilters())
	case "setfilter":
		h.reply(update.Message, h.handleSetFilter(args))
	case "setflag":
		h.reply(update.Message, h.handleSetFlag(args))
	case "start", "help":
		h.reply(update.Message, helpText())
	}
}

func (h *Handler) reply(to *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(to.Chat.ID, text)
	msg.ReplyToMessageID = to.MessageID
	if _, err := h.bot.Send(msg); err != nil {
		logging.LogError("Failed to send command reply", zap.Error(err))
	}
}

func helpText() string {
	return strings.Join([]string{
		"Commands:",
		"/filters - show current filter configuration",
		"/setfilter <field> <min> <max> - update a numeric range",
		"  fields: " + strings.Join(filters.RangeFields(), ", "),
		"/setflag <field> <true|false> - update a required flag",
		"  fields: " + strings.Join(filters.FlagFields(), ", "),
	}, "\n")
}

// renderFilters shows the current config and its generation so operators can
// correlate alerts with the configuration that produced them.
func (h *Handler) renderFilters() string {
	cfg, gen := h.store.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "Filter configuration (generation %d)\n", gen)
	fmt.Fprintf(&b, "%s: %g – %g\n", filters.FieldLiquidity, cfg.LiquidityUsd.Min, cfg.LiquidityUsd.Max)
	fmt.Fprintf(&b, "%s: %g – %g\n", filters.FieldMarketCap, cfg.MarketCapUsd.Min, cfg.MarketCapUsd.Max)
	fmt.Fprintf(&b, "%s: %g – %g\n", filters.FieldDevHolding, cfg.DevHoldingPct.Min, cfg.DevHoldingPct.Max)
	fmt.Fprintf(&b, "%s: %g – %g\n", filters.FieldPoolSupply, cfg.PoolSupplyPct.Min, cfg.PoolSupplyPct.Max)
	fmt.Fprintf(&b, "%s: %g – %g\n", filters.FieldPrice, cfg.LaunchPrice.Min, cfg.LaunchPrice.Max)
	fmt.Fprintf(&b, "%s: %t\n", filters.FieldMintRevoked, cfg.MintAuthorityRevoked)
	fmt.Fprintf(&b, "%s: %t", filters.FieldFreezeRevoked, cfg.FreezeAuthorityRevoked)
	return b.String()
}

// handleSetFilter parses "/setfilter <field> <min> <max>". Rejections leave
// the configuration untouched and are echoed back to the user.
func (h *Handler) handleSetFilter(args string) string {
	parts := strings.Fields(args)
	if len(parts) != 3 {
		return "Usage: /setfilter <field> <min> <max>\n\nExample: /setfilter liquidity 0 1000"
	}

	min, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return fmt.Sprintf("Invalid min %q: not a number", parts[1])
	}
	max, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return fmt.Sprintf("Invalid max %q: not a number", parts[2])
	}

	if err := h.store.SetRange(parts[0], min, max); err != nil {
		return "Rejected: " + err.Error()
	}
	logging.LogInfo("Filter range updated",
		zap.String("field", parts[0]),
		zap.Float64("min", min),
		zap.Float64("max", max),
		zap.Uint64("generation", h.store.Generation()))
	return fmt.Sprintf("Updated %s to %g – %g (generation %d)", parts[0], min, max, h.store.Generation())
}

// handleSetFlag parses "/setflag <field> <true|false>".
func (h *Handler) handleSetFlag(args string) string {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "Usage: /setflag <field> <true|false>\n\nExample: /setflag mintrevoked true"
	}

	if err := h.store.SetFlag(parts[0], parts[1]); err != nil {
		return "Rejected: " + err.Error()
	}
	logging.LogInfo("Filter flag updated",
		zap.String("field", parts[0]),
		zap.String("value", parts[1]),
		zap.Uint64("generation", h.store.Generation()))
	return fmt.Sprintf("Updated %s to %s (generation %d)", parts[0], parts[1], h.store.Generation())
}

// handleCallback answers the alert buttons.
func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	action, address := dispatch.ParseCallbackData(cb.Data)

	ack := func(text string) {
		if _, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
			logging.LogDebug("Callback ack failed", zap.Error(err))
		}
	}

	switch action {
	case dispatch.ActionIgnore:
		ack("Ignored")

	case dispatch.ActionRefresh:
		token, err := h.normalizer.Normalize(ctx, pipeline.RawEvent{Type: "TOKEN_MINT", TokenMint: address})
		if err != nil {
			ack("Refresh failed")
			return
		}
		edit := tgbotapi.NewEditMessageText(h.chatID, cb.Message.MessageID, dispatch.RenderAlert(token))
		markup := controlsMarkup(address)
		edit.ReplyMarkup = &markup
		if _, err := h.bot.Send(edit); err != nil {
			logging.LogError("Failed to refresh alert", zap.String("address", address), zap.Error(err))
		}
		ack("Refreshed")

	case dispatch.ActionDetails:
		text := fmt.Sprintf("Token %s\nChart: %s\nExplorer: https://solscan.io/token/%s",
			address, dispatch.ChartURL(address), address)
		if _, err := h.bot.Send(tgbotapi.NewMessage(h.chatID, text)); err != nil {
			logging.LogError("Failed to send details", zap.String("address", address), zap.Error(err))
		}
		ack("")

	case dispatch.ActionBuy:
		if h.executor == nil {
			ack("Trading is disabled")
			return
		}
		sig, err := h.executor.Buy(ctx, address, h.buyAmount)
		if err != nil {
			logging.LogError("Manual buy failed", zap.String("address", address), zap.Error(err))
			ack("Buy failed")
			return
		}
		h.bot.Send(tgbotapi.NewMessage(h.chatID,
			fmt.Sprintf("Bought %g SOL of %s\nTx: %s", h.buyAmount, address, sig)))
		ack("Buy submitted")
	}
}

func controlsMarkup(address string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 2)
	for _, row := range dispatch.Controls(address) {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
