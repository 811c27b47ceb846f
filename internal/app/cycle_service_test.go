package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"litter_reminder_bot/internal/domain/cleaning"
	"litter_reminder_bot/internal/domain/gateway"
	"litter_reminder_bot/internal/domain/schedule"
	"litter_reminder_bot/internal/domain/settings"
	idb "litter_reminder_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// --- test doubles ---

type fakeRepo struct {
	cycles     map[string]*cleaning.Cycle
	nextID     int
	failCreate error
	failUpdate error
	failDelete error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{cycles: make(map[string]*cleaning.Cycle)}
}

func (r *fakeRepo) Create(_ context.Context, cycle *cleaning.Cycle) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	if cycle.ID == "" {
		r.nextID++
		cycle.ID = string(rune('a' + r.nextID - 1))
	}
	stored := *cycle
	r.cycles[cycle.ID] = &stored
	return nil
}

func (r *fakeRepo) Update(_ context.Context, cycle *cleaning.Cycle) error {
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.cycles[cycle.ID]; !ok {
		return idb.ErrCycleNotFound
	}
	stored := *cycle
	r.cycles[cycle.ID] = &stored
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, cycle *cleaning.Cycle) error {
	if r.failDelete != nil {
		return r.failDelete
	}
	if _, ok := r.cycles[cycle.ID]; !ok {
		return idb.ErrCycleNotFound
	}
	delete(r.cycles, cycle.ID)
	return nil
}

func (r *fakeRepo) List(_ context.Context, _ int) ([]*cleaning.Cycle, error) {
	var out []*cleaning.Cycle
	for _, c := range r.cycles {
		copied := *c
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeRepo) Active(_ context.Context) (*cleaning.Cycle, error) {
	var active *cleaning.Cycle
	for _, c := range r.cycles {
		if c.IsComplete() {
			continue
		}
		if active == nil || c.ScheduledAt.Before(active.ScheduledAt) {
			active = c
		}
	}
	if active == nil {
		return nil, idb.ErrCycleNotFound
	}
	copied := *active
	return &copied, nil
}

func (r *fakeRepo) Completed(_ context.Context) ([]*cleaning.Cycle, error) {
	var out []*cleaning.Cycle
	for _, c := range r.cycles {
		if c.IsComplete() {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) ByNotificationRef(_ context.Context, ref string) (*cleaning.Cycle, error) {
	for _, c := range r.cycles {
		if c.NotificationRef.Valid && c.NotificationRef.String == ref {
			copied := *c
			return &copied, nil
		}
	}
	return nil, idb.ErrCycleNotFound
}

type scheduledAlert struct {
	dueAt      time.Time
	occurrence int
}

type fakeNotifier struct {
	scheduled    []scheduledAlert
	cancelled    []string
	failSchedule error
	failCancel   error
	refSeq       int
}

func (n *fakeNotifier) Schedule(_ context.Context, dueAt time.Time, occurrence int) (string, error) {
	if n.failSchedule != nil {
		return "", n.failSchedule
	}
	n.scheduled = append(n.scheduled, scheduledAlert{dueAt, occurrence})
	n.refSeq++
	return "notif-" + string(rune('0'+n.refSeq)), nil
}

func (n *fakeNotifier) Cancel(_ context.Context, ref string) error {
	if n.failCancel != nil {
		return n.failCancel
	}
	n.cancelled = append(n.cancelled, ref)
	return nil
}

func (n *fakeNotifier) IsPermissionGranted(context.Context) bool { return n.failSchedule == nil }
func (n *fakeNotifier) RequestAccess(context.Context) (bool, error) {
	return n.failSchedule == nil, n.failSchedule
}

type fakeReminder struct {
	added        []time.Time
	completed    []string
	rescheduled  []string
	cancelled    []string
	failAdd      error
	failComplete error
	failCancel   error
}

func (r *fakeReminder) Add(_ context.Context, dueAt time.Time) (string, error) {
	if r.failAdd != nil {
		return "", r.failAdd
	}
	r.added = append(r.added, dueAt)
	return "task-1", nil
}

func (r *fakeReminder) Complete(_ context.Context, ref string, _ time.Time) error {
	if r.failComplete != nil {
		return r.failComplete
	}
	r.completed = append(r.completed, ref)
	return nil
}

func (r *fakeReminder) Reschedule(_ context.Context, ref string, _ time.Time) error {
	r.rescheduled = append(r.rescheduled, ref)
	return nil
}

func (r *fakeReminder) Cancel(_ context.Context, ref string) error {
	if r.failCancel != nil {
		return r.failCancel
	}
	r.cancelled = append(r.cancelled, ref)
	return nil
}

func (r *fakeReminder) IsPermissionGranted(context.Context) bool    { return true }
func (r *fakeReminder) RequestAccess(context.Context) (bool, error) { return true, nil }

type fakeSettingsRepo struct {
	cfg  settings.Settings
	fail error
}

func (s *fakeSettingsRepo) Load(context.Context) (settings.Settings, error) {
	return s.cfg, s.fail
}

func (s *fakeSettingsRepo) Save(_ context.Context, cfg settings.Settings) error {
	s.cfg = cfg
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newService(repo *fakeRepo, cfg settings.Settings, notifier *fakeNotifier, reminder *fakeReminder) *CycleServiceImpl {
	return NewCycleService(
		repo,
		&fakeSettingsRepo{cfg: cfg},
		schedule.NewDefaultService(time.UTC),
		notifier,
		reminder,
		quietLogger(),
	)
}

var testNow = time.Date(2024, 11, 23, 9, 0, 0, 0, time.UTC)

// --- AddCycle ---

func TestAddCycleWithChannelsDisabled(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	reminder := &fakeReminder{}
	svc := newService(repo, settings.Default(), notifier, reminder)

	out, err := svc.AddCycle(context.Background(), testNow)
	if err != nil {
		t.Fatalf("AddCycle: %v", err)
	}

	if len(notifier.scheduled) != 0 || len(reminder.added) != 0 {
		t.Error("gateways were called despite both channels disabled")
	}
	if out.Cycle.NotificationRef.Valid || out.Cycle.ReminderRef.Valid {
		t.Error("cycle has gateway refs despite both channels disabled")
	}

	stored, ok := repo.cycles[out.Cycle.ID]
	if !ok {
		t.Fatal("cycle was not persisted")
	}
	want := time.Date(2024, 11, 25, 17, 0, 0, 0, time.UTC)
	if !stored.ScheduledAt.Equal(want) {
		t.Errorf("ScheduledAt = %s, want %s", stored.ScheduledAt, want)
	}
	if !stored.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %s, want %s", stored.CreatedAt, testNow)
	}
}

func TestAddCycleLinksGatewayRefs(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	reminder := &fakeReminder{}
	cfg := settings.Default()
	cfg.NotificationsEnabled = true
	cfg.RemindersEnabled = true
	svc := newService(repo, cfg, notifier, reminder)

	out, err := svc.AddCycle(context.Background(), testNow)
	if err != nil {
		t.Fatalf("AddCycle: %v", err)
	}
	if !out.Cycle.NotificationRef.Valid || !out.Cycle.ReminderRef.Valid {
		t.Error("expected both gateway refs to be linked")
	}
	if len(notifier.scheduled) != 1 || notifier.scheduled[0].occurrence != 1 {
		t.Errorf("notifier.scheduled = %v, want one alert with occurrence 1", notifier.scheduled)
	}
}

func TestAddCycleToleratesGatewayFailures(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{failSchedule: &gateway.OperationError{Gateway: "notification", Op: "schedule", Err: errors.New("boom")}}
	reminder := &fakeReminder{failAdd: &gateway.AuthorizationError{Gateway: "reminder"}}
	cfg := settings.Default()
	cfg.NotificationsEnabled = true
	cfg.RemindersEnabled = true
	svc := newService(repo, cfg, notifier, reminder)

	out, err := svc.AddCycle(context.Background(), testNow)
	if err != nil {
		t.Fatalf("AddCycle must not fail on gateway errors, got: %v", err)
	}
	if out.NotificationErr == nil || out.ReminderErr == nil {
		t.Error("gateway failures were not reported in the outcome")
	}
	if out.Cycle.NotificationRef.Valid || out.Cycle.ReminderRef.Valid {
		t.Error("failed gateway attempts must leave refs unset")
	}
	if _, ok := repo.cycles[out.Cycle.ID]; !ok {
		t.Error("cycle was not persisted despite gateway failures")
	}
}

func TestAddCycleRejectsSecondActive(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, settings.Default(), &fakeNotifier{}, &fakeReminder{})

	if _, err := svc.AddCycle(context.Background(), testNow); err != nil {
		t.Fatalf("first AddCycle: %v", err)
	}
	if _, err := svc.AddCycle(context.Background(), testNow.Add(time.Hour)); !errors.Is(err, ErrActiveCycleExists) {
		t.Errorf("second AddCycle: got %v, want ErrActiveCycleExists", err)
	}
	if len(repo.cycles) != 1 {
		t.Errorf("repo holds %d cycles, want 1", len(repo.cycles))
	}
}

func TestAddCyclePropagatesStoreFailure(t *testing.T) {
	repo := newFakeRepo()
	persistFailure := &idb.PersistenceError{Op: "create cycle", Err: errors.New("disk full")}
	repo.failCreate = persistFailure
	svc := newService(repo, settings.Default(), &fakeNotifier{}, &fakeReminder{})

	_, err := svc.AddCycle(context.Background(), testNow)
	var pe *idb.PersistenceError
	if !errors.As(err, &pe) {
		t.Errorf("AddCycle: got %v, want PersistenceError", err)
	}
}

// --- MarkComplete ---

func TestMarkCompleteSurvivesGatewayFailures(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{failCancel: errors.New("cancel failed")}
	reminder := &fakeReminder{failComplete: errors.New("complete failed")}
	svc := newService(repo, settings.Default(), notifier, reminder)

	cycle := &cleaning.Cycle{
		ID:              "c1",
		CreatedAt:       testNow,
		ScheduledAt:     testNow.Add(48 * time.Hour),
		NotificationRef: sql.NullString{String: "notif-9", Valid: true},
		ReminderRef:     sql.NullString{String: "task-9", Valid: true},
	}
	stored := *cycle
	repo.cycles[cycle.ID] = &stored

	completedAt := testNow.Add(50 * time.Hour)
	out, err := svc.MarkComplete(context.Background(), cycle, completedAt, false)
	if err != nil {
		t.Fatalf("MarkComplete must not fail on gateway errors, got: %v", err)
	}
	if out.NotificationErr == nil || out.ReminderErr == nil {
		t.Error("gateway failures were not reported in the outcome")
	}
	if got := repo.cycles["c1"].CompletedAt; !got.Valid || !got.Time.Equal(completedAt) {
		t.Errorf("stored completedAt = %v, want %s", got, completedAt)
	}
}

func TestMarkCompleteSchedulesSuccessor(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, settings.Default(), &fakeNotifier{}, &fakeReminder{})

	cycle := &cleaning.Cycle{ID: "c1", CreatedAt: testNow, ScheduledAt: testNow.Add(48 * time.Hour)}
	stored := *cycle
	repo.cycles[cycle.ID] = &stored

	completedAt := testNow.Add(49 * time.Hour)
	out, err := svc.MarkComplete(context.Background(), cycle, completedAt, true)
	if err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if out.Next == nil {
		t.Fatal("no successor cycle scheduled")
	}
	if !out.Next.Cycle.CreatedAt.Equal(completedAt) {
		t.Errorf("successor CreatedAt = %s, want %s", out.Next.Cycle.CreatedAt, completedAt)
	}
	if len(repo.cycles) != 2 {
		t.Errorf("repo holds %d cycles, want 2", len(repo.cycles))
	}
}

func TestMarkCompleteReportsSuccessorFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, settings.Default(), &fakeNotifier{}, &fakeReminder{})

	cycle := &cleaning.Cycle{ID: "c1", CreatedAt: testNow, ScheduledAt: testNow.Add(48 * time.Hour)}
	stored := *cycle
	repo.cycles[cycle.ID] = &stored
	repo.failCreate = &idb.PersistenceError{Op: "create cycle", Err: errors.New("disk full")}

	completedAt := testNow.Add(49 * time.Hour)
	out, err := svc.MarkComplete(context.Background(), cycle, completedAt, true)
	if err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if out.NextErr == nil {
		t.Error("successor store failure was not reported")
	}
	if got := repo.cycles["c1"].CompletedAt; !got.Valid {
		t.Error("completion must remain durable when the successor fails")
	}
}

func TestMarkCompletePropagatesUpdateFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failUpdate = &idb.PersistenceError{Op: "update cycle", Err: errors.New("io error")}
	notifier := &fakeNotifier{}
	reminder := &fakeReminder{}
	svc := newService(repo, settings.Default(), notifier, reminder)

	cycle := &cleaning.Cycle{
		ID:              "c1",
		ScheduledAt:     testNow,
		NotificationRef: sql.NullString{String: "notif-1", Valid: true},
	}
	stored := *cycle
	repo.cycles[cycle.ID] = &stored

	_, err := svc.MarkComplete(context.Background(), cycle, testNow, false)
	var pe *idb.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("MarkComplete: got %v, want PersistenceError", err)
	}
	// The primary effect failed, so the gateways must not have been touched.
	if len(notifier.cancelled) != 0 || len(reminder.completed) != 0 {
		t.Error("gateways were called before the store update committed")
	}
}

// --- DeleteCycle ---

func TestDeleteCycleCancelsGateways(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	reminder := &fakeReminder{}
	svc := newService(repo, settings.Default(), notifier, reminder)

	cycle := &cleaning.Cycle{
		ID:              "c1",
		ScheduledAt:     testNow,
		NotificationRef: sql.NullString{String: "notif-1", Valid: true},
		ReminderRef:     sql.NullString{String: "task-1", Valid: true},
	}
	stored := *cycle
	repo.cycles[cycle.ID] = &stored

	if err := svc.DeleteCycle(context.Background(), cycle); err != nil {
		t.Fatalf("DeleteCycle: %v", err)
	}
	if len(repo.cycles) != 0 {
		t.Error("cycle still present after delete")
	}
	if len(notifier.cancelled) != 1 || len(reminder.cancelled) != 1 {
		t.Error("gateway cancels were not attempted")
	}
}

func TestDeleteCyclePropagatesStoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failDelete = &idb.PersistenceError{Op: "delete cycle", Err: errors.New("io error")}
	svc := newService(repo, settings.Default(), &fakeNotifier{failCancel: errors.New("ignored")}, &fakeReminder{failCancel: errors.New("ignored")})

	cycle := &cleaning.Cycle{
		ID:              "c1",
		ScheduledAt:     testNow,
		NotificationRef: sql.NullString{String: "notif-1", Valid: true},
		ReminderRef:     sql.NullString{String: "task-1", Valid: true},
	}
	stored := *cycle
	repo.cycles[cycle.ID] = &stored

	err := svc.DeleteCycle(context.Background(), cycle)
	var pe *idb.PersistenceError
	if !errors.As(err, &pe) {
		t.Errorf("DeleteCycle: got %v, want PersistenceError", err)
	}
	if _, ok := repo.cycles["c1"]; !ok {
		t.Error("cycle must remain present after a failed delete")
	}
}

// --- notification actions ---

func TestSnoozeFromNotificationRelinksRef(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	svc := newService(repo, settings.Default(), notifier, &fakeReminder{})

	dueAt := time.Date(2024, 11, 25, 17, 0, 0, 0, time.UTC)
	cycle := &cleaning.Cycle{
		ID:              "c1",
		CreatedAt:       testNow,
		ScheduledAt:     dueAt,
		NotificationRef: sql.NullString{String: "notif-old", Valid: true},
	}
	stored := *cycle
	repo.cycles[cycle.ID] = &stored

	if err := svc.SnoozeFromNotification(context.Background(), "notif-old", dueAt, 1); err != nil {
		t.Fatalf("SnoozeFromNotification: %v", err)
	}

	if len(notifier.scheduled) != 1 {
		t.Fatalf("notifier.scheduled = %v, want one alert", notifier.scheduled)
	}
	wantDue := time.Date(2024, 11, 26, 17, 0, 0, 0, time.UTC)
	if !notifier.scheduled[0].dueAt.Equal(wantDue) {
		t.Errorf("snoozed dueAt = %s, want %s", notifier.scheduled[0].dueAt, wantDue)
	}
	if notifier.scheduled[0].occurrence != 2 {
		t.Errorf("snoozed occurrence = %d, want 2", notifier.scheduled[0].occurrence)
	}

	got := repo.cycles["c1"].NotificationRef
	if !got.Valid || got.String == "notif-old" {
		t.Errorf("notificationRef = %v, want a fresh reference", got)
	}
	// The cycle's own schedule is untouched; only the alert moves.
	if !repo.cycles["c1"].ScheduledAt.Equal(dueAt) {
		t.Errorf("scheduledAt changed to %s on snooze", repo.cycles["c1"].ScheduledAt)
	}
}

func TestSnoozeFromNotificationIgnoresStaleRef(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	svc := newService(repo, settings.Default(), notifier, &fakeReminder{})

	if err := svc.SnoozeFromNotification(context.Background(), "gone", testNow, 1); err != nil {
		t.Fatalf("SnoozeFromNotification with stale ref: %v", err)
	}
	if len(notifier.scheduled) != 0 {
		t.Error("no alert should be scheduled for a stale reference")
	}
}

func TestCompleteFromNotification(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, settings.Default(), &fakeNotifier{}, &fakeReminder{})

	cycle := &cleaning.Cycle{
		ID:              "c1",
		CreatedAt:       testNow,
		ScheduledAt:     testNow.Add(48 * time.Hour),
		NotificationRef: sql.NullString{String: "notif-1", Valid: true},
	}
	stored := *cycle
	repo.cycles[cycle.ID] = &stored

	now := testNow.Add(49 * time.Hour)
	out, err := svc.CompleteFromNotification(context.Background(), "notif-1", now)
	if err != nil {
		t.Fatalf("CompleteFromNotification: %v", err)
	}
	if out == nil {
		t.Fatal("expected an outcome for a live reference")
	}
	if !repo.cycles["c1"].CompletedAt.Valid {
		t.Error("cycle was not completed")
	}
	// Auto-schedule is on by default, so a successor exists.
	if out.Next == nil {
		t.Error("expected a successor cycle")
	}

	stale, err := svc.CompleteFromNotification(context.Background(), "notif-unknown", now)
	if err != nil || stale != nil {
		t.Errorf("stale ref: got (%v, %v), want (nil, nil)", stale, err)
	}
}
