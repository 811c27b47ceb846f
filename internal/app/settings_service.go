// internal/app/settings_service.go
package app

import (
	"context"
	"fmt"

	"litter_reminder_bot/internal/domain/gateway"
	"litter_reminder_bot/internal/domain/settings"
)

// Custom application-level errors for the settings service.
var ErrOwnerNotAuthorized = fmt.Errorf("performing user is not the configured owner")

// SettingsService exposes the owner-facing configuration operations. Turning
// a channel on runs that gateway's access request so a denied permission
// surfaces immediately instead of at the next due date.
type SettingsService struct {
	settingsRepo    settings.Repository
	notifier        gateway.Notifier
	reminder        gateway.Reminder
	ownerTelegramID int64
}

func NewSettingsService(sr settings.Repository, notifier gateway.Notifier, reminder gateway.Reminder, ownerID int64) *SettingsService {
	return &SettingsService{
		settingsRepo:    sr,
		notifier:        notifier,
		reminder:        reminder,
		ownerTelegramID: ownerID,
	}
}

func (s *SettingsService) Current(ctx context.Context, performingUserID int64) (settings.Settings, error) {
	if performingUserID != s.ownerTelegramID {
		return settings.Settings{}, ErrOwnerNotAuthorized
	}
	return s.settingsRepo.Load(ctx)
}

func (s *SettingsService) SetDaysOut(ctx context.Context, performingUserID int64, daysOut int) (settings.Settings, error) {
	return s.mutate(ctx, performingUserID, func(cfg *settings.Settings) error {
		cfg.DaysOut = daysOut
		return nil
	})
}

func (s *SettingsService) SetHourOfDay(ctx context.Context, performingUserID int64, hourOfDay int) (settings.Settings, error) {
	return s.mutate(ctx, performingUserID, func(cfg *settings.Settings) error {
		cfg.HourOfDay = hourOfDay
		return nil
	})
}

func (s *SettingsService) SetAutoSchedule(ctx context.Context, performingUserID int64, enabled bool) (settings.Settings, error) {
	return s.mutate(ctx, performingUserID, func(cfg *settings.Settings) error {
		cfg.AutoSchedule = enabled
		return nil
	})
}

// SetNotificationsEnabled toggles the timed-alert channel. Enabling requests
// gateway access first; an AuthorizationError is returned to the caller so
// the user can be pointed at the channel's settings.
func (s *SettingsService) SetNotificationsEnabled(ctx context.Context, performingUserID int64, enabled bool) (settings.Settings, error) {
	return s.mutate(ctx, performingUserID, func(cfg *settings.Settings) error {
		if enabled {
			if _, err := s.notifier.RequestAccess(ctx); err != nil {
				return err
			}
		}
		cfg.NotificationsEnabled = enabled
		return nil
	})
}

func (s *SettingsService) SetRemindersEnabled(ctx context.Context, performingUserID int64, enabled bool) (settings.Settings, error) {
	return s.mutate(ctx, performingUserID, func(cfg *settings.Settings) error {
		if enabled {
			if _, err := s.reminder.RequestAccess(ctx); err != nil {
				return err
			}
		}
		cfg.RemindersEnabled = enabled
		return nil
	})
}

func (s *SettingsService) mutate(ctx context.Context, performingUserID int64, change func(*settings.Settings) error) (settings.Settings, error) {
	if performingUserID != s.ownerTelegramID {
		return settings.Settings{}, ErrOwnerNotAuthorized
	}

	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := change(&cfg); err != nil {
		return settings.Settings{}, err
	}
	if err := cfg.Validate(); err != nil {
		return settings.Settings{}, err
	}
	if err := s.settingsRepo.Save(ctx, cfg); err != nil {
		return settings.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return cfg, nil
}
