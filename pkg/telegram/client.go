package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers run reports and failure alerts.
type Notifier interface {
	SendMessage(text string) error
}

// client is a Notifier posting to a single chat through the Bot API.
type client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient authenticates the bot and returns a notifier posting to chatID.
func NewClient(botToken string, chatID int64) (Notifier, error) {
	if botToken == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram bot_token and chat_id are required")
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate telegram bot: %w", err)
	}
	return &client{bot: bot, chatID: chatID}, nil
}

// SendMessage posts a Markdown message. Link previews are disabled so run
// reports stay compact.
func (c *client) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
