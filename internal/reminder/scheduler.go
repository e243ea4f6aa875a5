package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/errors"
	"github.com/mocho-app/mocho/internal/logging"
)

// RecordSource provides the current cycle record. *ops.Session satisfies it.
type RecordSource interface {
	Record() cycle.Record
}

// Notifier delivers a notice.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// LogNotifier writes notices to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, n Notice) error {
	logging.OrNop(l.Logger).Info("reminder",
		zap.String("kind", string(n.Kind)),
		zap.String("date", n.Date.String()),
		zap.String("message", n.Message),
	)
	return nil
}

// Scheduler runs Notices on a cron schedule.
type Scheduler struct {
	source   RecordSource
	notifier Notifier
	logger   *zap.Logger
	spec     string
	now      func() time.Time

	cron *cron.Cron
}

// New validates the five-field cron spec and returns a stopped scheduler.
func New(source RecordSource, notifier Notifier, spec string, logger *zap.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid reminder_schedule %q: %v", spec, err))
	}
	logger = logging.OrNop(logger)
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Scheduler{
		source:   source,
		notifier: notifier,
		logger:   logger,
		spec:     spec,
		now:      time.Now,
	}, nil
}

// Start schedules the daily run and starts the cron loop.
func (s *Scheduler) Start() *cron.Cron {
	cl := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	// spec was validated in New.
	_, _ = c.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Warn("reminder run failed", zap.Error(err))
		}
	})
	c.Start()
	s.cron = c
	s.logger.Info("reminders scheduled", zap.String("schedule", s.spec))
	return c
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

// RunOnce computes today's notices and delivers each one. Delivery stops at
// the first notifier error.
func (s *Scheduler) RunOnce(ctx context.Context) ([]Notice, error) {
	today := cycle.DateOf(s.now())
	notices := Notices(s.source.Record(), today)
	for _, n := range notices {
		if err := ctx.Err(); err != nil {
			return notices, errors.NewCancelled("reminders")
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			return notices, fmt.Errorf("notify %s: %w", n.Kind, err)
		}
	}
	return notices, nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
