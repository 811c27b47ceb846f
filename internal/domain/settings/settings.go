// internal/domain/settings/settings.go
package settings

import (
	"context"
	"fmt"
)

// Defaults applied when a value has never been saved.
const (
	DefaultDaysOut   = 2
	DefaultHourOfDay = 17
)

// Settings is the process-wide configuration consulted by the scheduling
// engine and the cycle orchestrators on every call. It is loaded from the
// backing store each time, never cached.
type Settings struct {
	DaysOut              int
	HourOfDay            int
	AutoSchedule         bool
	NotificationsEnabled bool
	RemindersEnabled     bool
}

// Default returns the settings used before anything has been saved.
func Default() Settings {
	return Settings{
		DaysOut:      DefaultDaysOut,
		HourOfDay:    DefaultHourOfDay,
		AutoSchedule: true,
	}
}

func (s Settings) Validate() error {
	if s.DaysOut < 0 {
		return fmt.Errorf("daysOut must not be negative, got %d", s.DaysOut)
	}
	if s.HourOfDay < 0 || s.HourOfDay > 23 {
		return fmt.Errorf("hourOfDay must be between 0 and 23, got %d", s.HourOfDay)
	}
	return nil
}

// Repository persists settings as external key/value state.
type Repository interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}
