// internal/domain/telegram/client.go
package telegram

import (
	"context"

	"gopkg.in/telebot.v3"
)

// Client defines the Telegram operations the gateway adapters need. It
// decouples the application logic from the specific bot library and lets
// tests substitute a double.
type Client interface {
	// SendMessage delivers a text message and returns the sent message's ID.
	SendMessage(ctx context.Context, chatID int64, text string, options *telebot.SendOptions) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, options *telebot.SendOptions) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// ChatAccessible probes whether the bot may post to the chat.
	ChatAccessible(ctx context.Context, chatID int64) error
}
