// internal/app/cycle_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"litter_reminder_bot/internal/domain/cleaning"
	"litter_reminder_bot/internal/domain/gateway"
	"litter_reminder_bot/internal/domain/schedule"
	"litter_reminder_bot/internal/domain/settings"
	idb "litter_reminder_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// ErrActiveCycleExists enforces the single-active-cycle policy: AddCycle is
// rejected while an incomplete cycle exists.
var ErrActiveCycleExists = errors.New("an active cleaning cycle already exists")

// CycleService composes the scheduling engine, the cycle store and the two
// gateways into the user-facing cycle operations.
type CycleService interface {
	// AddCycle creates the next cycle due settings.DaysOut days from now.
	// Gateway failures are reported through the outcome, never block the
	// durable record.
	AddCycle(ctx context.Context, now time.Time) (*AddOutcome, error)

	// MarkComplete sets the completion timestamp (fatal on store failure),
	// then best-effort completes the reminder and cancels the notification,
	// then optionally schedules the successor cycle.
	MarkComplete(ctx context.Context, cycle *cleaning.Cycle, completedAt time.Time, scheduleNext bool) (*CompleteOutcome, error)

	// DeleteCycle best-effort cancels both gateways, then removes the record.
	// The store failure is the operation's failure.
	DeleteCycle(ctx context.Context, cycle *cleaning.Cycle) error

	// CompleteFromNotification handles the alert's "mark complete" action.
	CompleteFromNotification(ctx context.Context, notificationRef string, now time.Time) (*CompleteOutcome, error)

	// SnoozeFromNotification handles the alert's "remind me tomorrow" action:
	// a new alert one day after the fired one, occurrence incremented, and
	// the cycle relinked to the new reference.
	SnoozeFromNotification(ctx context.Context, notificationRef string, firedDueAt time.Time, occurrence int) error

	ActiveCycle(ctx context.Context) (*cleaning.Cycle, error)
	CompletedCycles(ctx context.Context) ([]*cleaning.Cycle, error)
	History(ctx context.Context, limit int) ([]*cleaning.Cycle, error)
}

// AddOutcome reports a created cycle together with any non-fatal gateway
// failures. Partial success is an accepted terminal state, not an error.
type AddOutcome struct {
	Cycle           *cleaning.Cycle
	NotificationErr error
	ReminderErr     error
}

// CompleteOutcome mirrors AddOutcome for the completion flow. Next holds the
// successor cycle when one was scheduled; NextErr a failure creating it. The
// completion itself is durable in either case.
type CompleteOutcome struct {
	Cycle           *cleaning.Cycle
	NotificationErr error
	ReminderErr     error
	Next            *AddOutcome
	NextErr         error
}

type CycleServiceImpl struct {
	repo         cleaning.Repository
	settingsRepo settings.Repository
	scheduler    schedule.Service
	notifier     gateway.Notifier
	reminder     gateway.Reminder
	logger       *logrus.Logger
}

func NewCycleService(
	repo cleaning.Repository,
	settingsRepo settings.Repository,
	scheduler schedule.Service,
	notifier gateway.Notifier,
	reminder gateway.Reminder,
	logger *logrus.Logger,
) *CycleServiceImpl {
	return &CycleServiceImpl{
		repo:         repo,
		settingsRepo: settingsRepo,
		scheduler:    scheduler,
		notifier:     notifier,
		reminder:     reminder,
		logger:       logger,
	}
}

func (s *CycleServiceImpl) AddCycle(ctx context.Context, now time.Time) (*AddOutcome, error) {
	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if _, err := s.repo.Active(ctx); err == nil {
		return nil, ErrActiveCycleExists
	} else if !errors.Is(err, idb.ErrCycleNotFound) {
		return nil, err
	}

	scheduledAt, err := s.scheduler.NextDueDate(now, cfg.DaysOut, cfg.HourOfDay)
	if err != nil {
		return nil, err
	}

	out := &AddOutcome{}
	cycle := &cleaning.Cycle{
		CreatedAt:   now,
		ScheduledAt: scheduledAt,
	}

	if cfg.NotificationsEnabled {
		ref, err := s.notifier.Schedule(ctx, scheduledAt, 1)
		if err != nil {
			s.logger.Warnf("Could not schedule notification for cycle due %s: %v", scheduledAt.Format(time.RFC3339), err)
			out.NotificationErr = err
		} else {
			cycle.NotificationRef = sql.NullString{String: ref, Valid: true}
		}
	}

	if cfg.RemindersEnabled {
		ref, err := s.reminder.Add(ctx, scheduledAt)
		if err != nil {
			s.logger.Warnf("Could not add reminder for cycle due %s: %v", scheduledAt.Format(time.RFC3339), err)
			out.ReminderErr = err
		} else {
			cycle.ReminderRef = sql.NullString{String: ref, Valid: true}
		}
	}

	// The durable record is the operation's outcome. It is written even when
	// both gateways failed above.
	if err := s.repo.Create(ctx, cycle); err != nil {
		return nil, err
	}
	s.logger.Infof("Created cycle %s scheduled for %s", cycle.ID, scheduledAt.Format(time.RFC3339))

	out.Cycle = cycle
	return out, nil
}

func (s *CycleServiceImpl) MarkComplete(ctx context.Context, cycle *cleaning.Cycle, completedAt time.Time, scheduleNext bool) (*CompleteOutcome, error) {
	// Primary effect first. Nothing below may run until this commits, and
	// nothing below may undo it.
	cycle.CompletedAt = sql.NullTime{Time: completedAt, Valid: true}
	if err := s.repo.Update(ctx, cycle); err != nil {
		return nil, err
	}
	s.logger.Infof("Marked cycle %s complete at %s", cycle.ID, completedAt.Format(time.RFC3339))

	out := &CompleteOutcome{Cycle: cycle}

	if cycle.ReminderRef.Valid {
		if err := s.reminder.Complete(ctx, cycle.ReminderRef.String, completedAt); err != nil {
			s.logger.Warnf("Could not complete reminder %s: %v", cycle.ReminderRef.String, err)
			out.ReminderErr = err
		}
	}

	if cycle.NotificationRef.Valid {
		if err := s.notifier.Cancel(ctx, cycle.NotificationRef.String); err != nil {
			s.logger.Warnf("Could not cancel notification %s: %v", cycle.NotificationRef.String, err)
			out.NotificationErr = err
		}
	}

	if scheduleNext {
		next, err := s.AddCycle(ctx, completedAt)
		if err != nil {
			// The completion is already durable; the successor failure is
			// reported, not allowed to mask it.
			s.logger.Errorf("Could not schedule successor cycle after %s: %v", cycle.ID, err)
			out.NextErr = err
		} else {
			out.Next = next
		}
	}
	return out, nil
}

func (s *CycleServiceImpl) DeleteCycle(ctx context.Context, cycle *cleaning.Cycle) error {
	if cycle.ReminderRef.Valid {
		if err := s.reminder.Cancel(ctx, cycle.ReminderRef.String); err != nil {
			s.logger.Warnf("Could not cancel reminder %s: %v", cycle.ReminderRef.String, err)
		}
	}
	if cycle.NotificationRef.Valid {
		if err := s.notifier.Cancel(ctx, cycle.NotificationRef.String); err != nil {
			s.logger.Warnf("Could not cancel notification %s: %v", cycle.NotificationRef.String, err)
		}
	}

	// Record removal is the user-visible effect; its failure is the caller's.
	return s.repo.Delete(ctx, cycle)
}

func (s *CycleServiceImpl) CompleteFromNotification(ctx context.Context, notificationRef string, now time.Time) (*CompleteOutcome, error) {
	cycle, err := s.repo.ByNotificationRef(ctx, notificationRef)
	if err != nil {
		if errors.Is(err, idb.ErrCycleNotFound) {
			s.logger.Warnf("No cycle owns notification %s. Possibly a stale action.", notificationRef)
			return nil, nil
		}
		return nil, err
	}

	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return s.MarkComplete(ctx, cycle, now, cfg.AutoSchedule)
}

func (s *CycleServiceImpl) SnoozeFromNotification(ctx context.Context, notificationRef string, firedDueAt time.Time, occurrence int) error {
	cycle, err := s.repo.ByNotificationRef(ctx, notificationRef)
	if err != nil {
		if errors.Is(err, idb.ErrCycleNotFound) {
			s.logger.Warnf("No cycle owns notification %s. Possibly a stale action.", notificationRef)
			return nil
		}
		return err
	}

	cfg, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	newDueAt, err := s.scheduler.SnoozeDate(firedDueAt, 1, cfg.HourOfDay)
	if err != nil {
		return err
	}

	newRef, err := s.notifier.Schedule(ctx, newDueAt, occurrence+1)
	if err != nil {
		return err
	}

	cycle.NotificationRef = sql.NullString{String: newRef, Valid: true}
	if err := s.repo.Update(ctx, cycle); err != nil {
		return err
	}
	s.logger.Infof("Snoozed cycle %s to %s (occurrence %d)", cycle.ID, newDueAt.Format(time.RFC3339), occurrence+1)
	return nil
}

func (s *CycleServiceImpl) ActiveCycle(ctx context.Context) (*cleaning.Cycle, error) {
	return s.repo.Active(ctx)
}

func (s *CycleServiceImpl) CompletedCycles(ctx context.Context) ([]*cleaning.Cycle, error) {
	return s.repo.Completed(ctx)
}

func (s *CycleServiceImpl) History(ctx context.Context, limit int) ([]*cleaning.Cycle, error) {
	return s.repo.List(ctx, limit)
}

var _ CycleService = (*CycleServiceImpl)(nil)
