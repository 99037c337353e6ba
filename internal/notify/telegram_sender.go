package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender posts the chat rendering of a notification to one chat.
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	return newTelegramSender(token, chatID, tgbotapi.APIEndpoint)
}

// newTelegramSender allows pointing the bot at a different API endpoint.
func newTelegramSender(token string, chatID int64, endpoint string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &TelegramSender{bot: bot, chatID: chatID}, nil
}

func (t *TelegramSender) Name() string { return "telegram" }

func (t *TelegramSender) Send(ctx context.Context, msg *RenderedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := msg.Chat
	if text == "" {
		text = msg.Subject
	}

	m := tgbotapi.NewMessage(t.chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true

	_, err := t.bot.Send(m)
	return err
}
