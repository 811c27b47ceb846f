// internal/domain/gateway/gateway.go
package gateway

import (
	"context"
	"time"
)

// Notifier is the timed-alert channel. All operations are best effort from
// the caller's point of view: orchestrators report failures but never let
// them block the durable cycle record.
type Notifier interface {
	// Schedule registers an alert for the due instant. The occurrence counter
	// starts at 1 and drives escalating alert wording. Returns an opaque
	// reference usable with Cancel.
	Schedule(ctx context.Context, dueAt time.Time, occurrence int) (string, error)

	// Cancel removes a pending alert and clears any already-delivered one.
	// Cancelling an unknown reference is not an error.
	Cancel(ctx context.Context, ref string) error

	IsPermissionGranted(ctx context.Context) bool
	RequestAccess(ctx context.Context) (bool, error)
}

// Reminder is the task-list channel: a single task item with a due date at
// minute granularity.
type Reminder interface {
	Add(ctx context.Context, dueAt time.Time) (string, error)
	Complete(ctx context.Context, ref string, completedAt time.Time) error
	Reschedule(ctx context.Context, ref string, newDueAt time.Time) error
	Cancel(ctx context.Context, ref string) error

	IsPermissionGranted(ctx context.Context) bool
	RequestAccess(ctx context.Context) (bool, error)
}
