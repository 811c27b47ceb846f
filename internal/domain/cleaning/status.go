// internal/domain/cleaning/status.go
package cleaning

import (
	"database/sql"
	"time"
)

// Status is the derived (not stored) state of a cycle at a point in time.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusDue       Status = "DUE"
	StatusOverdue   Status = "OVERDUE"
	StatusCompleted Status = "COMPLETED"
)

// DueGracePeriod is how long after the scheduled instant a cycle counts as
// merely due before it becomes overdue.
const DueGracePeriod = time.Hour

// ClassifyStatus derives the status of a cycle given the clock and its
// scheduled/completed timestamps. A set completedAt wins regardless of the
// other fields.
func ClassifyStatus(now, scheduledAt time.Time, completedAt sql.NullTime) Status {
	if completedAt.Valid {
		return StatusCompleted
	}
	if now.Before(scheduledAt) {
		return StatusScheduled
	}
	if now.Sub(scheduledAt) < DueGracePeriod {
		return StatusDue
	}
	return StatusOverdue
}

// StatusAt derives the cycle's status at the given time.
func (c *Cycle) StatusAt(now time.Time) Status {
	return ClassifyStatus(now, c.ScheduledAt, c.CompletedAt)
}
