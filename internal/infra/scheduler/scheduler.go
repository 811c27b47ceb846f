// internal/infra/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AlertDispatcher is the slice of the notification gateway the sweep needs.
type AlertDispatcher interface {
	DispatchDue(ctx context.Context, now time.Time) error
}

// AlertScheduler owns the cron engine that periodically delivers due alerts.
type AlertScheduler struct {
	cronEngine   *cron.Cron
	dispatcher   AlertDispatcher
	logger       *logrus.Logger
	dispatchSpec string
}

func NewAlertScheduler(dispatcher AlertDispatcher, logger *logrus.Logger, dispatchSpec string) *AlertScheduler {
	return &AlertScheduler{
		cronEngine:   cron.New(cron.WithLocation(time.Local)),
		dispatcher:   dispatcher,
		logger:       logger,
		dispatchSpec: dispatchSpec,
	}
}

func (s *AlertScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.dispatchSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.dispatcher.DispatchDue(ctx, time.Now()); err != nil {
			s.logger.Errorf("Error during alert dispatch sweep: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Infof("Alert scheduler started (spec %q).", s.dispatchSpec)
	return nil
}

func (s *AlertScheduler) Stop() {
	s.logger.Info("Stopping alert scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Alert scheduler gracefully stopped.")
}
