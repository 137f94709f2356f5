package sweeper

import (
	"context"
	"courtkeeper/pkg/clock"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Finder lists reservations due for an automatic transition.
type Finder interface {
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)
	FindEnded(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)
}

// Transitioner applies the automatic transitions. Both methods ignore a
// reservation that changed since it was listed.
type Transitioner interface {
	ExpireHold(ctx context.Context, r *model.Reservation) error
	Complete(ctx context.Context, r *model.Reservation) error
}

type Result struct {
	Expired   int
	Completed int
	Failed    int
}

// Sweeper expires lapsed payment holds and completes finished reservations
// on a cron schedule. Each run handles at most one batch of each kind; the
// rest is picked up by the next run.
type Sweeper struct {
	finder     Finder
	lifecycle  Transitioner
	clock      clock.Clock
	batchSize  int
	runTimeout time.Duration
	schedule   string
	log        *logger.Logger
	cron       *cron.Cron
}

func New(finder Finder, lifecycle Transitioner, clk clock.Clock, cfg *config.Config) *Sweeper {
	log := cfg.Log.Component("sweeper")
	return &Sweeper{
		finder:     finder,
		lifecycle:  lifecycle,
		clock:      clk,
		batchSize:  cfg.SweepBatchSize,
		runTimeout: cfg.RequestTimeout,
		schedule:   cfg.SweepSchedule,
		log:        log,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log}),
			cron.SkipIfStillRunning(cronLogger{log}),
		)),
	}
}

// Start schedules Sweep. It does not block.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweeper: %w", err)
	}
	s.cron.Start()
	s.log.Info("Sweeper started", "schedule", schedule, "batch_size", s.batchSize)
	return nil
}

func (s *Sweeper) Name() string { return "sweeper" }

// Run starts the configured schedule and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.Start(s.schedule); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		s.log.Info("Sweeper stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("Sweeper did not stop in time")
		return ctx.Err()
	}
}

func (s *Sweeper) Sweep(ctx context.Context) Result {
	var res Result
	now := s.clock.Now()

	holds, err := s.finder.FindExpiredHolds(ctx, now, s.batchSize)
	if err != nil {
		s.log.Error("Failed to list expired holds", "error", err)
	}
	for _, r := range holds {
		if err := s.lifecycle.ExpireHold(ctx, r); err != nil {
			res.Failed++
			s.log.Error("Failed to expire hold", "id", r.ID, "error", err)
			continue
		}
		res.Expired++
	}

	ended, err := s.finder.FindEnded(ctx, now, s.batchSize)
	if err != nil {
		s.log.Error("Failed to list ended reservations", "error", err)
	}
	for _, r := range ended {
		if err := s.lifecycle.Complete(ctx, r); err != nil {
			res.Failed++
			s.log.Error("Failed to complete reservation", "id", r.ID, "error", err)
			continue
		}
		res.Completed++
	}

	if res != (Result{}) {
		s.log.Info("Sweep finished",
			"expired", res.Expired,
			"completed", res.Completed,
			"failed", res.Failed,
		)
	}
	return res
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
