// internal/domain/schedule/service.go
package schedule

import (
	"fmt"
	"time"
)

// Service computes due dates for cleaning cycles. Implementations are pure
// date arithmetic: no side effects, deterministic given inputs and the
// calendar rules of the configured location.
type Service interface {
	// NextDueDate adds daysOut calendar days to now and sets the wall clock
	// to hourOfDay:00:00 in the service's location.
	NextDueDate(now time.Time, daysOut, hourOfDay int) (time.Time, error)

	// SnoozeDate applies the same arithmetic to an existing due date. Used
	// for "remind me later" escalation.
	SnoozeDate(existingDue time.Time, daysOut, hourOfDay int) (time.Time, error)
}

// ConfigurationError reports scheduling parameters that cannot produce a
// valid local instant, such as an hour swallowed by a daylight-saving gap.
// It is returned, never panicked.
type ConfigurationError struct {
	Base      time.Time
	DaysOut   int
	HourOfDay int
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cannot schedule %d day(s) after %s at hour %d: %s",
		e.DaysOut, e.Base.Format(time.RFC3339), e.HourOfDay, e.Reason)
}

// DefaultService is the production scheduling engine.
type DefaultService struct {
	loc *time.Location
}

// NewDefaultService builds a scheduling engine for the given location. A nil
// location means the process's local time zone.
func NewDefaultService(loc *time.Location) *DefaultService {
	if loc == nil {
		loc = time.Local
	}
	return &DefaultService{loc: loc}
}

func (s *DefaultService) NextDueDate(now time.Time, daysOut, hourOfDay int) (time.Time, error) {
	return dueDateAfter(now, daysOut, hourOfDay, s.loc)
}

func (s *DefaultService) SnoozeDate(existingDue time.Time, daysOut, hourOfDay int) (time.Time, error) {
	return dueDateAfter(existingDue, daysOut, hourOfDay, s.loc)
}

func dueDateAfter(base time.Time, daysOut, hourOfDay int, loc *time.Location) (time.Time, error) {
	if hourOfDay < 0 || hourOfDay > 23 {
		return time.Time{}, &ConfigurationError{
			Base: base, DaysOut: daysOut, HourOfDay: hourOfDay,
			Reason: "hour of day out of range",
		}
	}
	if daysOut < 0 {
		return time.Time{}, &ConfigurationError{
			Base: base, DaysOut: daysOut, HourOfDay: hourOfDay,
			Reason: "negative days out",
		}
	}

	shifted := base.In(loc).AddDate(0, 0, daysOut)
	due := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), hourOfDay, 0, 0, 0, loc)

	// time.Date normalizes instants that do not exist in the local calendar
	// (DST gaps). Detect the normalization instead of returning a shifted
	// wall clock.
	if due.Hour() != hourOfDay || due.Day() != shifted.Day() {
		return time.Time{}, &ConfigurationError{
			Base: base, DaysOut: daysOut, HourOfDay: hourOfDay,
			Reason: "local time does not exist in " + loc.String(),
		}
	}
	return due, nil
}

// DebugService schedules one minute out regardless of settings. Handy for
// exercising the full notification round trip without waiting days.
type DebugService struct{}

func (DebugService) NextDueDate(now time.Time, _, _ int) (time.Time, error) {
	return now.Add(time.Minute), nil
}

func (DebugService) SnoozeDate(existingDue time.Time, _, _ int) (time.Time, error) {
	return existingDue.Add(time.Minute), nil
}
