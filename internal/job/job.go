// Package job runs periodic maintenance on a cron schedule.
package job

import (
	"context"
	"fmt"
	"time"

	"local-services/internal/data/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Func is one run of a job. The context is cancelled after the run timeout.
type Func func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	log     *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	log = log.With(zap.String("component", "scheduler"))
	cronLog := cronLogger{log: log.Sugar()}

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		timeout: time.Minute,
		log:     log,
	}
}

// Register adds a named job. spec is a standard cron expression or a descriptor such as "@every 1h".
func (s *Scheduler) Register(name, spec string, fn Func) error {
	log := s.log.With(zap.String("job", name))

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			log.Error("Job failed", zap.Error(err), zap.Duration("took", time.Since(start)))
			return
		}
		log.Debug("Job finished", zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule job %s (%q): %w", name, spec, err)
	}

	log.Info("Job scheduled", zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits up to ctx for running jobs to return
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Jobs still running at shutdown")
	}
}

// PurgeCodes clears verification and reset codes that have expired
func PurgeCodes(otp repository.OTPRepository, now func() time.Time, log *zap.Logger) Func {
	return func(ctx context.Context) error {
		purged, err := otp.PurgeExpired(ctx, now())
		if err != nil {
			return fmt.Errorf("purge expired codes: %w", err)
		}
		if purged > 0 {
			log.Info("Expired codes purged", zap.Int64("users", purged))
		}
		return nil
	}
}

// cronLogger routes the scheduler's own messages (panics, skipped runs) to zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
