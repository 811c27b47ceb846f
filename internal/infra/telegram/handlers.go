// internal/infra/telegram/handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"litter_reminder_bot/internal/app"
	"litter_reminder_bot/internal/domain/cleaning"
	"litter_reminder_bot/internal/domain/gateway"
	"litter_reminder_bot/internal/domain/settings"
	idb "litter_reminder_bot/internal/infra/database"

	"gopkg.in/telebot.v3"
)

const historyLimit = 10

// RegisterHandlers wires the owner-facing commands and the two alert
// callback actions.
func RegisterHandlers(
	ctx context.Context,
	b *telebot.Bot,
	cycleService app.CycleService,
	settingsService *app.SettingsService,
	ownerID int64,
) {
	ownerOnly := func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if c.Sender() == nil || c.Sender().ID != ownerID {
				return nil // silently ignore strangers
			}
			return next(c)
		}
	}

	b.Handle("/start", func(c telebot.Context) error {
		return c.Send("Litter Reminder at your service. Use /add to schedule a cleaning, /status to check the current one.")
	}, ownerOnly)

	b.Handle("/status", func(c telebot.Context) error {
		cycle, err := cycleService.ActiveCycle(ctx)
		if err != nil {
			if errors.Is(err, idb.ErrCycleNotFound) {
				return c.Send("No cleaning is scheduled. Use /add to schedule one.")
			}
			return sendFailure(c, "fetch the current cleaning", err)
		}
		return c.Send(statusLine(cycle, time.Now()))
	}, ownerOnly)

	b.Handle("/add", func(c telebot.Context) error {
		out, err := cycleService.AddCycle(ctx, time.Now())
		if err != nil {
			if errors.Is(err, app.ErrActiveCycleExists) {
				return c.Send("A cleaning is already scheduled. Complete or /delete it first.")
			}
			return sendFailure(c, "schedule a cleaning", err)
		}
		return c.Send(addedText(out))
	}, ownerOnly)

	b.Handle("/done", func(c telebot.Context) error {
		cycle, err := cycleService.ActiveCycle(ctx)
		if err != nil {
			if errors.Is(err, idb.ErrCycleNotFound) {
				return c.Send("Nothing to complete: no cleaning is scheduled.")
			}
			return sendFailure(c, "fetch the current cleaning", err)
		}

		cfg, err := settingsService.Current(ctx, ownerID)
		if err != nil {
			return sendFailure(c, "load settings", err)
		}
		out, err := cycleService.MarkComplete(ctx, cycle, time.Now(), cfg.AutoSchedule)
		if err != nil {
			return sendFailure(c, "mark the cleaning complete", err)
		}
		return c.Send(completedText(out))
	}, ownerOnly)

	b.Handle("/delete", func(c telebot.Context) error {
		cycle, err := cycleService.ActiveCycle(ctx)
		if err != nil {
			if errors.Is(err, idb.ErrCycleNotFound) {
				return c.Send("Nothing to delete: no cleaning is scheduled.")
			}
			return sendFailure(c, "fetch the current cleaning", err)
		}
		if err := cycleService.DeleteCycle(ctx, cycle); err != nil {
			return sendFailure(c, "delete the cleaning", err)
		}
		return c.Send("Scheduled cleaning deleted.")
	}, ownerOnly)

	b.Handle("/history", func(c telebot.Context) error {
		cycles, err := cycleService.History(ctx, historyLimit)
		if err != nil {
			return sendFailure(c, "fetch the cleaning history", err)
		}
		if len(cycles) == 0 {
			return c.Send("No cleanings recorded yet.")
		}
		var sb strings.Builder
		sb.WriteString("Recent cleanings:\n")
		now := time.Now()
		for _, cycle := range cycles {
			sb.WriteString("• ")
			sb.WriteString(statusLine(cycle, now))
			sb.WriteString("\n")
		}
		return c.Send(sb.String())
	}, ownerOnly)

	b.Handle("/settings", func(c telebot.Context) error {
		return handleSettings(ctx, c, settingsService, ownerID)
	}, ownerOnly)

	// Alert actions. The callback data carries ref|dueUnix|occurrence, put
	// there when the alert was delivered.
	btnDone := telebot.Btn{Unique: CallbackMarkComplete}
	b.Handle(&btnDone, ownerOnly(func(c telebot.Context) error {
		ref, _, _, err := parseAlertCallback(c.Callback().Data)
		if err != nil {
			return c.Respond(&telebot.CallbackResponse{Text: "Malformed action."})
		}
		out, err := cycleService.CompleteFromNotification(ctx, ref, time.Now())
		if err != nil {
			return c.Respond(&telebot.CallbackResponse{Text: "Something went wrong."})
		}
		if out == nil {
			return c.Respond(&telebot.CallbackResponse{Text: "This reminder is no longer active."})
		}
		return c.Respond(&telebot.CallbackResponse{Text: "Marked complete!"})
	}))

	btnSnooze := telebot.Btn{Unique: CallbackRemindLater}
	b.Handle(&btnSnooze, ownerOnly(func(c telebot.Context) error {
		ref, dueAt, occurrence, err := parseAlertCallback(c.Callback().Data)
		if err != nil {
			return c.Respond(&telebot.CallbackResponse{Text: "Malformed action."})
		}
		if err := cycleService.SnoozeFromNotification(ctx, ref, dueAt, occurrence); err != nil {
			return c.Respond(&telebot.CallbackResponse{Text: "Could not snooze the reminder."})
		}
		return c.Respond(&telebot.CallbackResponse{Text: "Will remind you tomorrow."})
	}))
}

func handleSettings(ctx context.Context, c telebot.Context, svc *app.SettingsService, ownerID int64) error {
	args := c.Args()
	if len(args) == 0 {
		cfg, err := svc.Current(ctx, ownerID)
		if err != nil {
			return sendFailure(c, "load settings", err)
		}
		return c.Send(settingsText(cfg))
	}
	if len(args) != 2 {
		return c.Send("Usage: /settings <days|hour|auto|notifications|reminders> <value>")
	}

	var (
		cfg settings.Settings
		err error
	)
	switch args[0] {
	case "days":
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return c.Send("Days must be a number.")
		}
		cfg, err = svc.SetDaysOut(ctx, ownerID, n)
	case "hour":
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return c.Send("Hour must be a number between 0 and 23.")
		}
		cfg, err = svc.SetHourOfDay(ctx, ownerID, n)
	case "auto":
		cfg, err = svc.SetAutoSchedule(ctx, ownerID, args[1] == "on")
	case "notifications":
		cfg, err = svc.SetNotificationsEnabled(ctx, ownerID, args[1] == "on")
	case "reminders":
		cfg, err = svc.SetRemindersEnabled(ctx, ownerID, args[1] == "on")
	default:
		return c.Send("Unknown setting. Use days, hour, auto, notifications or reminders.")
	}
	if err != nil {
		if gateway.IsAuthorization(err) {
			return c.Send("The bot is not allowed to post to that chat. Check the chat's member list and try again.")
		}
		return sendFailure(c, "update settings", err)
	}
	return c.Send(settingsText(cfg))
}

func parseAlertCallback(data string) (ref string, dueAt time.Time, occurrence int, err error) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 {
		return "", time.Time{}, 0, fmt.Errorf("invalid alert callback data: %q", data)
	}
	dueUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", time.Time{}, 0, fmt.Errorf("invalid due timestamp in callback: %w", err)
	}
	occurrence, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", time.Time{}, 0, fmt.Errorf("invalid occurrence in callback: %w", err)
	}
	return parts[0], time.Unix(dueUnix, 0), occurrence, nil
}

func statusLine(cycle *cleaning.Cycle, now time.Time) string {
	switch cycle.StatusAt(now) {
	case cleaning.StatusCompleted:
		return fmt.Sprintf("Completed %s", cycle.CompletedAt.Time.Local().Format(taskDueLayout))
	case cleaning.StatusScheduled:
		return fmt.Sprintf("Scheduled for %s", cycle.ScheduledAt.Local().Format(taskDueLayout))
	case cleaning.StatusDue:
		return fmt.Sprintf("Due now (since %s)", cycle.ScheduledAt.Local().Format(taskDueLayout))
	default:
		return fmt.Sprintf("Overdue! Was due %s", cycle.ScheduledAt.Local().Format(taskDueLayout))
	}
}

func addedText(out *app.AddOutcome) string {
	text := fmt.Sprintf("Cleaning scheduled for %s.", out.Cycle.ScheduledAt.Local().Format(taskDueLayout))
	if out.NotificationErr != nil {
		text += "\n⚠️ The notification could not be scheduled."
	}
	if out.ReminderErr != nil {
		text += "\n⚠️ The reminder task could not be created."
	}
	return text
}

func completedText(out *app.CompleteOutcome) string {
	text := "Cleaning marked complete. 🎉"
	if out.Next != nil {
		text += fmt.Sprintf("\nNext cleaning scheduled for %s.", out.Next.Cycle.ScheduledAt.Local().Format(taskDueLayout))
	}
	if out.NextErr != nil {
		text += "\n⚠️ The next cleaning could not be scheduled."
	}
	return text
}

func settingsText(cfg settings.Settings) string {
	onOff := func(v bool) string {
		if v {
			return "on"
		}
		return "off"
	}
	return fmt.Sprintf(
		"Current settings:\n• days out: %d\n• hour of day: %d:00\n• auto-schedule: %s\n• notifications: %s\n• reminders: %s",
		cfg.DaysOut, cfg.HourOfDay, onOff(cfg.AutoSchedule), onOff(cfg.NotificationsEnabled), onOff(cfg.RemindersEnabled))
}

func sendFailure(c telebot.Context, what string, err error) error {
	c.Bot().OnError(fmt.Errorf("failed to %s: %w", what, err), c)
	return c.Send(fmt.Sprintf("Could not %s. Please try again.", what))
}
