// Package scheduler runs the periodic refresh and eviction jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// Refresher refreshes every stale asset.
type Refresher interface {
	RefreshAllStale(ctx context.Context) (model.BatchReport, error)
}

// Evictor removes expired derived results.
type Evictor interface {
	EvictExpired(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner with the refresh and eviction jobs.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	evictor   Evictor
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New registers the jobs named in cfg. An empty expression disables that job.
// Jobs run in UTC; a run that is still going when the next one is due is skipped.
func New(cfg config.ScheduleConfig, refresher Refresher, evictor Evictor, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		refresher: refresher,
		evictor:   evictor,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	if cfg.Refresh != "" {
		if _, err := s.cron.AddFunc(cfg.Refresh, s.refresh); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.Refresh, err)
		}
	}
	if cfg.Eviction != "" {
		if _, err := s.cron.AddFunc(cfg.Eviction, s.evict); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid eviction schedule %q: %w", cfg.Eviction, err)
		}
	}
	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.Jobs())
}

// Stop prevents new runs and waits for running jobs to return or for ctx to
// expire. A running refresh finishes its current group and stops at the next
// pause.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) refresh() {
	report, err := s.refresher.RefreshAllStale(s.ctx)
	if errors.Is(err, apperrors.ErrRefreshInProgress) {
		s.logger.Info("scheduled refresh skipped, a run is already in progress")
		return
	}
	if err != nil {
		s.logger.Error("scheduled refresh failed", "error", err)
		return
	}
	s.logger.Info("scheduled refresh finished", "run_id", report.RunID, "summary", report.Message)
}

func (s *Scheduler) evict() {
	n, err := s.evictor.EvictExpired(s.ctx)
	if err != nil {
		s.logger.Error("scheduled eviction failed", "error", err)
		return
	}
	s.logger.Debug("scheduled eviction finished", "evicted", n)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
