// internal/infra/telegram/errors.go
package telegram

import (
	"errors"
	"net/http"

	"litter_reminder_bot/internal/domain/gateway"

	"gopkg.in/telebot.v3"
)

// classifyGatewayErr maps telebot failures onto the gateway error taxonomy.
// 401/403 mean the bot was blocked or never authorized for the chat; that is
// the user's call and recoverable only by them, so it maps to
// AuthorizationError. Everything else is treated as transient.
func classifyGatewayErr(gatewayName, op string, err error) error {
	if err == nil {
		return nil
	}
	var tbErr *telebot.Error
	if errors.As(err, &tbErr) {
		switch tbErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &gateway.AuthorizationError{Gateway: gatewayName, Err: err}
		}
	}
	if errors.Is(err, telebot.ErrBlockedByUser) || errors.Is(err, telebot.ErrUnauthorized) {
		return &gateway.AuthorizationError{Gateway: gatewayName, Err: err}
	}
	return &gateway.OperationError{Gateway: gatewayName, Op: op, Err: err}
}
