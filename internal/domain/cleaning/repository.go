// internal/domain/cleaning/repository.go
package cleaning

import (
	"context"
)

// Repository defines the durable operations over cleaning cycles. Every
// mutation either fully commits or leaves the record set unchanged; any I/O
// failure is surfaced as a database.PersistenceError by the implementation.
type Repository interface {
	// Create persists a new cycle. An empty ID is assigned by the store and
	// written back to the passed cycle.
	Create(ctx context.Context, cycle *Cycle) error
	Update(ctx context.Context, cycle *Cycle) error
	Delete(ctx context.Context, cycle *Cycle) error

	// List returns cycles ordered by creation time, newest first. A limit of
	// zero or less returns all cycles.
	List(ctx context.Context, limit int) ([]*Cycle, error)

	// Active returns the incomplete cycle with the earliest scheduled time,
	// or database.ErrCycleNotFound when every cycle is complete.
	Active(ctx context.Context) (*Cycle, error)

	// Completed returns completed cycles ordered by completion time, newest
	// first.
	Completed(ctx context.Context) ([]*Cycle, error)

	// ByNotificationRef correlates an inbound notification action with its
	// owning cycle. Returns database.ErrCycleNotFound when no cycle holds the
	// reference.
	ByNotificationRef(ctx context.Context, ref string) (*Cycle, error)
}
