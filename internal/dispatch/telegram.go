package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	logging "pumpwatch/internal/infra/log"
)

// TelegramNotifier sends alerts to a single chat through the Bot API.
// Sends are paced to stay under Telegram's per-chat flood limits.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
}

// NewTelegramNotifier wraps an authorized bot for the given chat.
// chatID accepts the usual "-100..." group form.
func NewTelegramNotifier(bot *tgbotapi.BotAPI, chatID string) (*TelegramNotifier, error) {
	id, err := ParseChatID(chatID)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{
		bot:    bot,
		chatID: id,
		// Telegram allows ~20 messages/minute per group; one per 3s is safe.
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 5),
	}, nil
}

// ParseChatID parses a Telegram chat identifier string.
func ParseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", s, err)
	}
	return id, nil
}

func keyboard(controls [][]Control) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(controls))
	for _, row := range controls {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// SendAlert implements Notifier.
func (n *TelegramNotifier) SendAlert(ctx context.Context, text string, controls [][]Control) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram send limiter: %w", err)
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if len(controls) > 0 {
		msg.ReplyMarkup = keyboard(controls)
	}
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	logging.LogDebug("Telegram alert sent", zap.Int64("chat_id", n.chatID))
	return nil
}

// EditAlert replaces the text of an already-sent alert, keeping its buttons.
// Used by the refresh control.
func (n *TelegramNotifier) EditAlert(ctx context.Context, messageID int, text string, controls [][]Control) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram send limiter: %w", err)
	}

	edit := tgbotapi.NewEditMessageText(n.chatID, messageID, text)
	if len(controls) > 0 {
		markup := keyboard(controls)
		edit.ReplyMarkup = &markup
	}
	if _, err := n.bot.Send(edit); err != nil {
		return fmt.Errorf("telegram edit: %w", err)
	}
	return nil
}

// SendText sends a plain service message to the alert chat (startup notice,
// command replies routed here).
func (n *TelegramNotifier) SendText(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram send limiter: %w", err)
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
