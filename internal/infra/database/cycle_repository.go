// internal/infra/database/cycle_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"litter_reminder_bot/internal/domain/cleaning"

	"github.com/google/uuid"
)

// CycleRepository implements cleaning.Repository over the shared DB handle.
// The SQL is driver-neutral; placeholder and DDL differences are isolated in
// rebind and the migration pipeline.
type CycleRepository struct {
	db *DB
}

func NewCycleRepository(db *DB) *CycleRepository {
	return &CycleRepository{db: db}
}

const cycleColumns = "id, created_at, scheduled_at, completed_at, notification_ref, reminder_ref"

func (r *CycleRepository) Create(ctx context.Context, cycle *cleaning.Cycle) error {
	if cycle.ID == "" {
		cycle.ID = uuid.NewString()
	}
	query := r.db.rebind(`INSERT INTO cycles (id, created_at, scheduled_at, completed_at, notification_ref, reminder_ref)
               VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		cycle.ID,
		encodeTime(cycle.CreatedAt),
		encodeTime(cycle.ScheduledAt),
		encodeNullTime(cycle.CompletedAt),
		nullStr(cycle.NotificationRef),
		nullStr(cycle.ReminderRef),
	)
	return persistErr("create cycle", err)
}

func (r *CycleRepository) Update(ctx context.Context, cycle *cleaning.Cycle) error {
	query := r.db.rebind(`UPDATE cycles
               SET scheduled_at = ?, completed_at = ?, notification_ref = ?, reminder_ref = ?
               WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query,
		encodeTime(cycle.ScheduledAt),
		encodeNullTime(cycle.CompletedAt),
		nullStr(cycle.NotificationRef),
		nullStr(cycle.ReminderRef),
		cycle.ID,
	)
	if err != nil {
		return persistErr("update cycle", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistErr("update cycle", err)
	}
	if affected == 0 {
		return ErrCycleNotFound
	}
	return nil
}

func (r *CycleRepository) Delete(ctx context.Context, cycle *cleaning.Cycle) error {
	query := r.db.rebind(`DELETE FROM cycles WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, cycle.ID)
	if err != nil {
		return persistErr("delete cycle", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistErr("delete cycle", err)
	}
	if affected == 0 {
		return ErrCycleNotFound
	}
	return nil
}

func (r *CycleRepository) List(ctx context.Context, limit int) ([]*cleaning.Cycle, error) {
	query := fmt.Sprintf(`SELECT %s FROM cycles ORDER BY created_at DESC`, cycleColumns)
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, persistErr("list cycles", err)
	}
	defer rows.Close()
	return scanCycles("list cycles", rows)
}

func (r *CycleRepository) Active(ctx context.Context) (*cleaning.Cycle, error) {
	query := r.db.rebind(fmt.Sprintf(
		`SELECT %s FROM cycles WHERE completed_at IS NULL ORDER BY scheduled_at ASC LIMIT 1`,
		cycleColumns))
	cycle, err := scanCycle(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, ErrCycleNotFound
	}
	if err != nil {
		return nil, persistErr("fetch active cycle", err)
	}
	return cycle, nil
}

func (r *CycleRepository) Completed(ctx context.Context) ([]*cleaning.Cycle, error) {
	query := r.db.rebind(fmt.Sprintf(
		`SELECT %s FROM cycles WHERE completed_at IS NOT NULL ORDER BY completed_at DESC`,
		cycleColumns))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, persistErr("fetch completed cycles", err)
	}
	defer rows.Close()
	return scanCycles("fetch completed cycles", rows)
}

func (r *CycleRepository) ByNotificationRef(ctx context.Context, ref string) (*cleaning.Cycle, error) {
	query := r.db.rebind(fmt.Sprintf(
		`SELECT %s FROM cycles WHERE notification_ref = ?`, cycleColumns))
	cycle, err := scanCycle(r.db.QueryRowContext(ctx, query, ref))
	if err == sql.ErrNoRows {
		return nil, ErrCycleNotFound
	}
	if err != nil {
		return nil, persistErr("fetch cycle by notification ref", err)
	}
	return cycle, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(row rowScanner) (*cleaning.Cycle, error) {
	var (
		cycle       cleaning.Cycle
		createdAt   string
		scheduledAt string
		completedAt sql.NullString
	)
	err := row.Scan(&cycle.ID, &createdAt, &scheduledAt, &completedAt,
		&cycle.NotificationRef, &cycle.ReminderRef)
	if err != nil {
		return nil, err
	}
	if cycle.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if cycle.ScheduledAt, err = decodeTime(scheduledAt); err != nil {
		return nil, err
	}
	if cycle.CompletedAt, err = decodeNullTime(completedAt); err != nil {
		return nil, err
	}
	return &cycle, nil
}

func scanCycles(op string, rows *sql.Rows) ([]*cleaning.Cycle, error) {
	var cycles []*cleaning.Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, persistErr(op, err)
		}
		cycles = append(cycles, cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(op, err)
	}
	return cycles, nil
}
