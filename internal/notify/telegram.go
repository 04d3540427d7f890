package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/InsiderScan/models"
)

// telegramMessageLimit is Telegram's maximum message length
const telegramMessageLimit = 4096

// Sender is the part of tgbotapi.BotAPI used for alerts
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts alerts to a chat
type Telegram struct {
	sender Sender
	chatID int64
	delay  time.Duration
	logger zerolog.Logger
}

// NewTelegramBot connects to the Bot API
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token not set")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return bot, nil
}

// NewTelegram creates a notifier for chatID
func NewTelegram(sender Sender, chatID int64) *Telegram {
	return &Telegram{
		sender: sender,
		chatID: chatID,
		// Telegram allows about 30 messages per second for bots
		delay:  50 * time.Millisecond,
		logger: log.With().Str("component", "telegram").Logger(),
	}
}

// Notify implements models.Notifier
func (t *Telegram) Notify(ctx context.Context, records []models.AnomalyRecord) error {
	if len(records) == 0 {
		return nil
	}

	parts := chunk(Render(records), telegramMessageLimit)
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := t.sender.Send(msg); err != nil {
			return fmt.Errorf("failed to send telegram message %d/%d: %w", i+1, len(parts), err)
		}

		if i < len(parts)-1 {
			time.Sleep(t.delay)
		}
	}

	t.logger.Info().Int("records", len(records)).Int("messages", len(parts)).Msg("Telegram alert sent")
	return nil
}
