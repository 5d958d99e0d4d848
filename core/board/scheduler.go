package board

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yarumotors/bot/core/logger"
)

// Scheduler runs a job on a cron schedule evaluated in UTC.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers job under spec (standard five field syntax).
func NewScheduler(spec string, job func(ctx context.Context) error) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("board: nil scheduled job")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			logger.Error(s.ctx, logger.CompBoard, "board.scheduled_refresh",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
				slog.Duration("duration", logger.Took(start)),
			)
			return
		}
		logger.Debug(s.ctx, logger.CompBoard, "board.scheduled_refresh",
			slog.String("status", "ok"),
			slog.Duration("duration", logger.Took(start)),
		)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("board: schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	var next time.Time
	if entries := s.cron.Entries(); len(entries) > 0 {
		next = entries[0].Next
	}
	logger.Info(s.ctx, logger.CompBoard, "board.scheduler_started",
		slog.Time("next", next),
	)
}

// Stop halts the schedule and waits for a running job, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
