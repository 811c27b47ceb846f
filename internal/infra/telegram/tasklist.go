// internal/infra/telegram/tasklist.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"litter_reminder_bot/internal/domain/gateway"
	domainTelegram "litter_reminder_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

const (
	reminderGatewayName = "reminder"

	// TaskTitle is the fixed title of the single task item.
	TaskTitle = "Scoop the poop"

	// Due dates on the task item carry minute granularity.
	taskDueLayout = "Mon, Jan 2 2006 at 15:04"
)

// TaskList is the reminder-list gateway: one task message per cycle posted
// to a dedicated tasks chat. Completing edits in a check mark, rescheduling
// rewrites the due line, cancelling deletes the message. The returned ref is
// the message ID.
type TaskList struct {
	client domainTelegram.Client
	chatID int64
	logger *logrus.Logger

	mu       sync.Mutex
	accessOK bool
}

func NewTaskList(client domainTelegram.Client, chatID int64, logger *logrus.Logger) *TaskList {
	return &TaskList{client: client, chatID: chatID, logger: logger}
}

func (t *TaskList) Add(ctx context.Context, dueAt time.Time) (string, error) {
	if err := t.ensureAccess(ctx); err != nil {
		return "", err
	}
	msgID, err := t.client.SendMessage(ctx, t.chatID, taskText(dueAt), nil)
	if err != nil {
		return "", classifyGatewayErr(reminderGatewayName, "add task", err)
	}
	return strconv.Itoa(msgID), nil
}

func (t *TaskList) Complete(ctx context.Context, ref string, completedAt time.Time) error {
	msgID, err := parseTaskRef(ref)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("✅ %s\nCompleted: %s", TaskTitle, completedAt.Format(taskDueLayout))
	if err := t.client.EditMessage(ctx, t.chatID, msgID, text, nil); err != nil {
		return classifyGatewayErr(reminderGatewayName, "complete task", err)
	}
	return nil
}

func (t *TaskList) Reschedule(ctx context.Context, ref string, newDueAt time.Time) error {
	msgID, err := parseTaskRef(ref)
	if err != nil {
		return err
	}
	if err := t.client.EditMessage(ctx, t.chatID, msgID, taskText(newDueAt), nil); err != nil {
		return classifyGatewayErr(reminderGatewayName, "reschedule task", err)
	}
	return nil
}

func (t *TaskList) Cancel(ctx context.Context, ref string) error {
	msgID, err := parseTaskRef(ref)
	if err != nil {
		return err
	}
	if err := t.client.DeleteMessage(ctx, t.chatID, msgID); err != nil {
		return classifyGatewayErr(reminderGatewayName, "cancel task", err)
	}
	return nil
}

func (t *TaskList) IsPermissionGranted(ctx context.Context) bool {
	return t.ensureAccess(ctx) == nil
}

func (t *TaskList) RequestAccess(ctx context.Context) (bool, error) {
	if err := t.ensureAccess(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (t *TaskList) ensureAccess(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.accessOK {
		return nil
	}
	if err := t.client.ChatAccessible(ctx, t.chatID); err != nil {
		return classifyGatewayErr(reminderGatewayName, "probe chat", err)
	}
	t.accessOK = true
	return nil
}

func taskText(dueAt time.Time) string {
	return fmt.Sprintf("🧹 %s\nDue: %s", TaskTitle, dueAt.Format(taskDueLayout))
}

func parseTaskRef(ref string) (int, error) {
	msgID, err := strconv.Atoi(ref)
	if err != nil {
		return 0, &gateway.OperationError{Gateway: reminderGatewayName, Op: "parse task ref", Err: err}
	}
	return msgID, nil
}

var _ gateway.Reminder = (*TaskList)(nil)
