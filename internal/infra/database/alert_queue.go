// internal/infra/database/alert_queue.go
package database

import (
	"context"
	"database/sql"
	"time"
)

// Alert is one pending or delivered timed alert. The queue is the
// notification gateway's own side-state: cycles only hold a weak reference
// to Ref.
type Alert struct {
	Ref        string
	DueAt      time.Time
	Occurrence int
	MessageID  sql.NullString // set once the alert message was delivered
	SentAt     sql.NullTime
}

// AlertQueue stores alerts awaiting delivery. Delivery itself is driven by
// the cron dispatch sweep.
type AlertQueue struct {
	db *DB
}

func NewAlertQueue(db *DB) (*AlertQueue, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS scheduled_alerts (
		ref        TEXT PRIMARY KEY,
		due_at     TEXT NOT NULL,
		occurrence INTEGER NOT NULL,
		message_id TEXT,
		sent_at    TEXT
	)`)
	if err != nil {
		return nil, persistErr("create alerts table", err)
	}
	return &AlertQueue{db: db}, nil
}

func (q *AlertQueue) Enqueue(ctx context.Context, a Alert) error {
	query := q.db.rebind(`INSERT INTO scheduled_alerts (ref, due_at, occurrence, message_id, sent_at)
		VALUES (?, ?, ?, ?, ?)`)
	_, err := q.db.ExecContext(ctx, query,
		a.Ref, encodeTime(a.DueAt), a.Occurrence, nullStr(a.MessageID), encodeNullTime(a.SentAt))
	return persistErr("enqueue alert", err)
}

// Remove deletes an alert and returns its last known state so the caller can
// clean up a delivered message. Returns ErrAlertNotFound for unknown refs.
func (q *AlertQueue) Remove(ctx context.Context, ref string) (*Alert, error) {
	a, err := q.get(ctx, ref)
	if err != nil {
		return nil, err
	}
	query := q.db.rebind(`DELETE FROM scheduled_alerts WHERE ref = ?`)
	if _, err := q.db.ExecContext(ctx, query, ref); err != nil {
		return nil, persistErr("remove alert", err)
	}
	return a, nil
}

// DueUnsent returns alerts whose due instant has passed and that have not
// been delivered yet.
func (q *AlertQueue) DueUnsent(ctx context.Context, now time.Time) ([]Alert, error) {
	query := q.db.rebind(`SELECT ref, due_at, occurrence, message_id, sent_at
		FROM scheduled_alerts
		WHERE sent_at IS NULL AND due_at <= ?
		ORDER BY due_at ASC`)
	rows, err := q.db.QueryContext(ctx, query, encodeTime(now))
	if err != nil {
		return nil, persistErr("fetch due alerts", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, persistErr("fetch due alerts", err)
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("fetch due alerts", err)
	}
	return alerts, nil
}

// MarkSent records the delivered message so a later cancel can remove it.
func (q *AlertQueue) MarkSent(ctx context.Context, ref, messageID string, at time.Time) error {
	query := q.db.rebind(`UPDATE scheduled_alerts SET message_id = ?, sent_at = ? WHERE ref = ?`)
	res, err := q.db.ExecContext(ctx, query, messageID, encodeTime(at), ref)
	if err != nil {
		return persistErr("mark alert sent", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistErr("mark alert sent", err)
	}
	if affected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (q *AlertQueue) get(ctx context.Context, ref string) (*Alert, error) {
	query := q.db.rebind(`SELECT ref, due_at, occurrence, message_id, sent_at
		FROM scheduled_alerts WHERE ref = ?`)
	a, err := scanAlert(q.db.QueryRowContext(ctx, query, ref))
	if err == sql.ErrNoRows {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, persistErr("fetch alert", err)
	}
	return a, nil
}

func scanAlert(row rowScanner) (*Alert, error) {
	var (
		a      Alert
		dueAt  string
		sentAt sql.NullString
	)
	if err := row.Scan(&a.Ref, &dueAt, &a.Occurrence, &a.MessageID, &sentAt); err != nil {
		return nil, err
	}
	due, err := decodeTime(dueAt)
	if err != nil {
		return nil, err
	}
	a.DueAt = due
	if a.SentAt, err = decodeNullTime(sentAt); err != nil {
		return nil, err
	}
	return &a, nil
}
