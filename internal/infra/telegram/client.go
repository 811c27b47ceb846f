// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"strconv"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the domain telegram.Client interface using the
// gopkg.in/telebot.v3 library. All outgoing calls go through a shared rate
// limiter to stay inside the Bot API send limits.
type TelebotAdapter struct {
	bot     *telebot.Bot
	limiter *rate.Limiter
}

func NewTelebotAdapter(b *telebot.Bot, limiter *rate.Limiter) *TelebotAdapter {
	if limiter == nil {
		// Bot API allows ~30 messages/second overall.
		limiter = rate.NewLimiter(rate.Limit(25), 5)
	}
	return &TelebotAdapter{bot: b, limiter: limiter}
}

// SendMessage sends a text message and returns the resulting message ID.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, chatID int64, text string, options *telebot.SendOptions) (int, error) {
	if err := tba.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	if options == nil {
		options = &telebot.SendOptions{}
	}
	msg, err := tba.bot.Send(telebot.ChatID(chatID), text, options)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (tba *TelebotAdapter) EditMessage(ctx context.Context, chatID int64, messageID int, text string, options *telebot.SendOptions) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return err
	}
	ref := telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	if options == nil {
		options = &telebot.SendOptions{}
	}
	_, err := tba.bot.Edit(ref, text, options)
	return err
}

func (tba *TelebotAdapter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return err
	}
	return tba.bot.Delete(telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID})
}

// ChatAccessible probes whether the bot can reach the chat at all.
func (tba *TelebotAdapter) ChatAccessible(ctx context.Context, chatID int64) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := tba.bot.ChatByID(chatID)
	return err
}
