package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Capturer runs a capture over all tracked wallets.
type Capturer interface {
	CaptureAll(ctx context.Context, trigger string) (*CaptureReport, error)
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Capturer    Capturer
	DailyHour   int  // UTC
	DailyMinute int  // UTC
	Hourly      bool // also capture at minute 0 of every hour
	Logger      *zap.Logger
	Now         func() time.Time
}

// Scheduler triggers CaptureAll once a day at a fixed UTC time and,
// optionally, at the top of every hour.
type Scheduler struct {
	capturer    Capturer
	dailyHour   int
	dailyMinute int
	hourly      bool
	logger      *zap.Logger
	now         func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		capturer:    opts.Capturer,
		dailyHour:   opts.DailyHour,
		dailyMinute: opts.DailyMinute,
		hourly:      opts.Hourly,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NextRun returns the first scheduled time strictly after now and its trigger.
// When the daily and hourly slots coincide the daily trigger wins.
func (s *Scheduler) NextRun(now time.Time) (time.Time, string) {
	now = now.UTC()

	daily := time.Date(now.Year(), now.Month(), now.Day(), s.dailyHour, s.dailyMinute, 0, 0, time.UTC)
	if !daily.After(now) {
		daily = daily.AddDate(0, 0, 1)
	}
	if !s.hourly {
		return daily, TriggerDaily
	}

	hourly := now.Truncate(time.Hour).Add(time.Hour)
	if hourly.Before(daily) {
		return hourly, TriggerHourly
	}
	return daily, TriggerDaily
}

// Run blocks until ctx is cancelled, firing captures on schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	next, trigger := s.NextRun(s.now())
	s.logger.Info("snapshot scheduler started",
		zap.Time("next_run", next),
		zap.String("trigger", trigger),
		zap.Bool("hourly", s.hourly),
	)

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("snapshot scheduler stopping")
			return ctx.Err()

		case <-timer.C:
			s.fire(ctx, trigger)
			next, trigger = s.NextRun(s.now())
			timer.Reset(time.Until(next))
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, trigger string) {
	began := time.Now()
	report, err := s.capturer.CaptureAll(ctx, trigger)
	if err != nil {
		s.logger.Error("scheduled snapshot capture failed", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	s.logger.Info("scheduled snapshot capture complete",
		zap.String("trigger", trigger),
		zap.Int("success", report.Success),
		zap.Int("failed", report.Failed),
		zap.Strings("wallets", report.Wallets),
		zap.Duration("duration", time.Since(began)),
	)
}
