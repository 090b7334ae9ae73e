package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Notifier defines the interface for a Telegram notifier.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// client is an implementation of Notifier.
type client struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
}

// NewClient creates a new Telegram notifier client. Sends are throttled to
// maxPerSecond messages per second; zero or less disables throttling.
func NewClient(botToken string, chatID int64, maxPerSecond float64) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if maxPerSecond > 0 {
		limit = rate.Limit(maxPerSecond)
	}
	return &client{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// SendMessage sends a message to the configured Telegram chat.
func (c *client) SendMessage(ctx context.Context, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := c.bot.Send(msg)
	return err
}
