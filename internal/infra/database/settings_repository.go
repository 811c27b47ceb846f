// internal/infra/database/settings_repository.go
package database

import (
	"context"
	"strconv"

	"litter_reminder_bot/internal/domain/settings"
)

// Key names carried over from the original per-user defaults storage.
const (
	keyDaysOut              = "appSetting-nextCleaningDaysOut"
	keyHourOfDay            = "appSetting-nextCleaningHourOfDay"
	keyAutoSchedule         = "appSetting-isAutoScheduleEnabled"
	keyNotificationsEnabled = "appSetting-isNotificationsEnabled"
	keyRemindersEnabled     = "appSetting-isRemindersEnabled"
)

// SettingsRepository persists settings in a key/value table. Missing keys
// fall back to the documented defaults.
type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) (*SettingsRepository, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS app_settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		return nil, persistErr("create settings table", err)
	}
	return &SettingsRepository{db: db}, nil
}

func (r *SettingsRepository) Load(ctx context.Context) (settings.Settings, error) {
	s := settings.Default()

	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return s, persistErr("load settings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return s, persistErr("load settings", err)
		}
		switch key {
		case keyDaysOut:
			if n, err := strconv.Atoi(value); err == nil {
				s.DaysOut = n
			}
		case keyHourOfDay:
			if n, err := strconv.Atoi(value); err == nil {
				s.HourOfDay = n
			}
		case keyAutoSchedule:
			s.AutoSchedule = value == "true"
		case keyNotificationsEnabled:
			s.NotificationsEnabled = value == "true"
		case keyRemindersEnabled:
			s.RemindersEnabled = value == "true"
		}
	}
	if err := rows.Err(); err != nil {
		return s, persistErr("load settings", err)
	}
	return s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("save settings", err)
	}
	defer txn.Rollback()

	pairs := map[string]string{
		keyDaysOut:              strconv.Itoa(s.DaysOut),
		keyHourOfDay:            strconv.Itoa(s.HourOfDay),
		keyAutoSchedule:         strconv.FormatBool(s.AutoSchedule),
		keyNotificationsEnabled: strconv.FormatBool(s.NotificationsEnabled),
		keyRemindersEnabled:     strconv.FormatBool(s.RemindersEnabled),
	}
	query := r.db.rebind(`INSERT INTO app_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	for key, value := range pairs {
		if _, err := txn.ExecContext(ctx, query, key, value); err != nil {
			return persistErr("save settings", err)
		}
	}
	return persistErr("save settings", txn.Commit())
}

var _ settings.Repository = (*SettingsRepository)(nil)
