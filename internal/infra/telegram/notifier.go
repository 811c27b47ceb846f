// internal/infra/telegram/notifier.go
package telegram

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"litter_reminder_bot/internal/domain/gateway"
	domainTelegram "litter_reminder_bot/internal/domain/telegram"
	idb "litter_reminder_bot/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Callback uniques for the two alert actions.
const (
	CallbackMarkComplete = "cycle_done"
	CallbackRemindLater  = "cycle_snooze"
)

const notifierGatewayName = "notification"

// Notifier is the timed-alert gateway: Schedule enqueues an alert into the
// queue and the cron-driven dispatch sweep delivers it to the owner chat
// when due, with inline "Mark Complete" / "Remind Me Tomorrow" actions.
type Notifier struct {
	client domainTelegram.Client
	queue  *idb.AlertQueue
	chatID int64
	logger *logrus.Logger

	mu       sync.Mutex
	accessOK bool
}

func NewNotifier(client domainTelegram.Client, queue *idb.AlertQueue, chatID int64, logger *logrus.Logger) *Notifier {
	return &Notifier{client: client, queue: queue, chatID: chatID, logger: logger}
}

func (n *Notifier) Schedule(ctx context.Context, dueAt time.Time, occurrence int) (string, error) {
	if err := n.ensureAccess(ctx); err != nil {
		return "", err
	}

	ref := uuid.NewString()
	err := n.queue.Enqueue(ctx, idb.Alert{Ref: ref, DueAt: dueAt, Occurrence: occurrence})
	if err != nil {
		return "", &gateway.OperationError{Gateway: notifierGatewayName, Op: "schedule alert", Err: err}
	}
	return ref, nil
}

// Cancel drops a pending alert and best-effort deletes an already-delivered
// alert message, which also clears its inline actions. Unknown refs are not
// an error.
func (n *Notifier) Cancel(ctx context.Context, ref string) error {
	alert, err := n.queue.Remove(ctx, ref)
	if err != nil {
		if errors.Is(err, idb.ErrAlertNotFound) {
			return nil
		}
		return &gateway.OperationError{Gateway: notifierGatewayName, Op: "cancel alert", Err: err}
	}

	if alert.MessageID.Valid {
		msgID, convErr := strconv.Atoi(alert.MessageID.String)
		if convErr == nil {
			if delErr := n.client.DeleteMessage(ctx, n.chatID, msgID); delErr != nil {
				n.logger.Warnf("Could not delete delivered alert message %s: %v", alert.MessageID.String, delErr)
			}
		}
	}
	return nil
}

func (n *Notifier) IsPermissionGranted(ctx context.Context) bool {
	return n.ensureAccess(ctx) == nil
}

func (n *Notifier) RequestAccess(ctx context.Context) (bool, error) {
	if err := n.ensureAccess(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ensureAccess probes the owner chat once and caches success. A probe
// failure is re-checked on the next call since the user may have unblocked
// the bot in the meantime.
func (n *Notifier) ensureAccess(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.accessOK {
		return nil
	}
	if err := n.client.ChatAccessible(ctx, n.chatID); err != nil {
		return classifyGatewayErr(notifierGatewayName, "probe chat", err)
	}
	n.accessOK = true
	return nil
}

// DispatchDue delivers every unsent alert whose due instant has passed.
// Called from the cron sweep; one failed send is logged and does not stop
// the rest of the batch.
func (n *Notifier) DispatchDue(ctx context.Context, now time.Time) error {
	alerts, err := n.queue.DueUnsent(ctx, now)
	if err != nil {
		return err
	}

	for _, alert := range alerts {
		markup := alertMarkup(alert)
		msgID, err := n.client.SendMessage(ctx, n.chatID, AlertMessage(alert.Occurrence), &telebot.SendOptions{ReplyMarkup: markup})
		if err != nil {
			n.logger.Errorf("Could not deliver alert %s (occurrence %d): %v", alert.Ref, alert.Occurrence, err)
			continue
		}
		if err := n.queue.MarkSent(ctx, alert.Ref, strconv.Itoa(msgID), now); err != nil {
			n.logger.Errorf("Could not mark alert %s as sent: %v", alert.Ref, err)
		}
	}
	return nil
}

// alertMarkup carries the alert payload (ref, due instant, occurrence) in
// the callback data so the snooze action can escalate from the notification
// itself, mirroring how the original stored them in the notification's user
// info.
func alertMarkup(alert idb.Alert) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	due := strconv.FormatInt(alert.DueAt.Unix(), 10)
	occ := strconv.Itoa(alert.Occurrence)
	btnDone := markup.Data("Mark Complete", CallbackMarkComplete, alert.Ref, due, occ)
	btnSnooze := markup.Data("Remind Me Tomorrow", CallbackRemindLater, alert.Ref, due, occ)
	markup.Inline(markup.Row(btnDone, btnSnooze))
	return markup
}

// AlertMessage returns the escalating alert wording for the given occurrence.
func AlertMessage(occurrence int) string {
	switch {
	case occurrence <= 1:
		return "The litter box is due for cleaning"
	case occurrence == 2:
		return "2nd Notification: The litter box is due for cleaning"
	case occurrence == 3:
		return "3rd Notification 🙀: The litter box is due for cleaning"
	default:
		return "😿 The litter box is way overdue for cleaning 🙀"
	}
}

var _ gateway.Notifier = (*Notifier)(nil)
