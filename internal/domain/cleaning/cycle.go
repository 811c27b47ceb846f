// internal/domain/cleaning/cycle.go
package cleaning

import (
	"database/sql"
	"time"
)

// Cycle is one instance of the recurring cleaning chore, from creation to
// completion or deletion. Corresponds to the 'cycles' table at the current
// schema version.
type Cycle struct {
	ID          string // UUID string, assigned at creation, immutable
	CreatedAt   time.Time
	ScheduledAt time.Time
	CompletedAt sql.NullTime

	// NotificationRef and ReminderRef are weak references into the
	// notification and reminder gateways. Deleting the cycle does not remove
	// the gateway-side state until a cancel is explicitly requested.
	NotificationRef sql.NullString
	ReminderRef     sql.NullString
}

// IsComplete reports whether the cycle has been marked complete.
func (c *Cycle) IsComplete() bool {
	return c.CompletedAt.Valid
}
