// internal/infra/telegram/tasklist_test.go
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"litter_reminder_bot/internal/domain/gateway"

	"gopkg.in/telebot.v3"
)

func TestTaskListAdd(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	tl := NewTaskList(client, 2002, testLogger())

	dueAt := time.Date(2024, 11, 25, 17, 0, 0, 0, time.UTC)
	ref, err := tl.Add(ctx, dueAt)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ref != "1" {
		t.Errorf("ref = %q, want the sent message id", ref)
	}
	if len(client.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(client.sent))
	}
	msg := client.sent[0]
	if msg.chatID != 2002 {
		t.Errorf("task chatID = %d, want 2002", msg.chatID)
	}
	want := "🧹 Scoop the poop\nDue: Mon, Nov 25 2024 at 17:00"
	if msg.text != want {
		t.Errorf("task text = %q, want %q", msg.text, want)
	}
}

func TestTaskListCompleteAndReschedule(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	tl := NewTaskList(client, 2002, testLogger())

	completedAt := time.Date(2024, 11, 25, 18, 30, 0, 0, time.UTC)
	if err := tl.Complete(ctx, "7", completedAt); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(client.edited) != 1 || !strings.HasPrefix(client.edited[0].text, "✅ Scoop the poop") {
		t.Errorf("completed edit = %+v", client.edited)
	}

	newDueAt := time.Date(2024, 11, 26, 17, 0, 0, 0, time.UTC)
	if err := tl.Reschedule(ctx, "7", newDueAt); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if len(client.edited) != 2 || !strings.Contains(client.edited[1].text, "Nov 26") {
		t.Errorf("reschedule edit = %+v", client.edited)
	}
}

func TestTaskListCancel(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	tl := NewTaskList(client, 2002, testLogger())

	if err := tl.Cancel(ctx, "9"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(client.deleted) != 1 || client.deleted[0] != 9 {
		t.Errorf("deleted = %v, want [9]", client.deleted)
	}
}

func TestTaskListBadRef(t *testing.T) {
	ctx := context.Background()
	tl := NewTaskList(&fakeClient{}, 2002, testLogger())

	err := tl.Cancel(ctx, "not-a-message-id")
	var opErr *gateway.OperationError
	if !errors.As(err, &opErr) {
		t.Errorf("Cancel with malformed ref: got %v, want OperationError", err)
	}
}

func TestTaskListAuthorizationErrors(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{accessErr: telebot.ErrUnauthorized}
	tl := NewTaskList(client, 2002, testLogger())

	if _, err := tl.Add(ctx, time.Now()); !gateway.IsAuthorization(err) {
		t.Errorf("Add against unauthorized chat: got %v, want AuthorizationError", err)
	}

	client.accessErr = nil
	client.editErr = &telebot.Error{Code: http.StatusForbidden, Description: "forbidden"}
	if err := tl.Complete(ctx, "7", time.Now()); !gateway.IsAuthorization(err) {
		t.Errorf("Complete against forbidden chat: got %v, want AuthorizationError", err)
	}
}
