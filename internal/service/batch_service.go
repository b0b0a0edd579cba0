package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/metrics"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// AssetSyncer refreshes a single asset.
type AssetSyncer interface {
	SyncAsset(ctx context.Context, assetName string) (model.SyncOutcome, error)
}

// BatchService runs AssetSyncer over many assets in fixed-width groups. Members
// of a group run concurrently; the next group starts only after every member of
// the current one has settled, followed by a fixed pause. Individual failures
// are captured in the report and never abort the run.
type BatchService struct {
	syncer   AssetSyncer
	registry AssetRegistry
	width    int
	delay    time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	running sync.Mutex
	mu      sync.RWMutex
	last    *model.BatchReport
}

// NewBatchService creates a BatchService using cfg.BatchConcurrency and cfg.InterBatchDelay.
func NewBatchService(syncer AssetSyncer, registry AssetRegistry, cfg config.SyncConfig, logger *slog.Logger, m *metrics.Metrics) *BatchService {
	width := cfg.BatchConcurrency
	if width < 1 {
		width = 1
	}
	return &BatchService{
		syncer:   syncer,
		registry: registry,
		width:    width,
		delay:    cfg.InterBatchDelay,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// WithClock overrides the time source used for report timestamps.
func (b *BatchService) WithClock(now func() time.Time) *BatchService {
	b.now = now
	return b
}

// WithSleep overrides how the pause between groups is taken.
func (b *BatchService) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *BatchService {
	b.sleep = sleep
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Partition splits names into consecutive groups of at most width names.
func Partition(names []string, width int) [][]string {
	if width < 1 {
		width = 1
	}
	groups := make([][]string, 0, (len(names)+width-1)/width)
	for start := 0; start < len(names); start += width {
		end := start + width
		if end > len(names) {
			end = len(names)
		}
		groups = append(groups, names[start:end])
	}
	return groups
}

// RefreshAllStale refreshes every registered asset. Fresh assets return without
// a network call.
func (b *BatchService) RefreshAllStale(ctx context.Context) (model.BatchReport, error) {
	return b.RefreshAll(ctx, b.registry.Names())
}

// RefreshAll refreshes assetNames group by group. It returns
// apperrors.ErrRefreshInProgress when another run has not finished.
// Cancelling ctx never interrupts a running group. It is observed during the
// pause between groups; remaining groups are then not started and their assets
// are reported as failed.
func (b *BatchService) RefreshAll(ctx context.Context, assetNames []string) (model.BatchReport, error) {
	if !b.running.TryLock() {
		b.metrics.ObserveBatch("rejected", 0)
		return model.BatchReport{}, apperrors.ErrRefreshInProgress
	}
	defer b.running.Unlock()

	groups := Partition(assetNames, b.width)
	report := model.BatchReport{
		RunID:     uuid.New().String(),
		StartedAt: b.now(),
		Groups:    groups,
		Outcomes:  make([]model.SyncOutcome, 0, len(assetNames)),
	}
	logger := b.logger.With("run_id", report.RunID)
	logger.Info("refresh run started", "assets", len(assetNames), "groups", len(groups), "width", b.width)

	for i, group := range groups {
		if i > 0 {
			if err := b.sleep(ctx, b.delay); err != nil {
				logger.Warn("refresh run cancelled", "remaining_groups", len(groups)-i, "error", err)
				for _, rest := range groups[i:] {
					for _, name := range rest {
						report.Outcomes = append(report.Outcomes, cancelledOutcome(name, err))
					}
				}
				break
			}
		}
		report.Outcomes = append(report.Outcomes, b.runGroup(ctx, logger, group)...)
	}

	report.FinishedAt = b.now()
	for _, o := range report.Outcomes {
		switch o.Status {
		case model.SyncStatusUpdated:
			report.Updated++
		case model.SyncStatusFresh, model.SyncStatusCooldown:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	report.Message = fmt.Sprintf("refreshed %d of %d assets (%d skipped, %d failed)",
		report.Updated, len(assetNames), report.Skipped, report.Failed)

	logger.Info("refresh run finished",
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	b.metrics.ObserveBatch("completed", report.FinishedAt.Sub(report.StartedAt))

	b.mu.Lock()
	stored := report
	b.last = &stored
	b.mu.Unlock()

	return report, nil
}

// runGroup syncs every member of group concurrently and waits for all of them.
// The goroutines never return an error, so one failure cannot cancel the others.
// Members run detached from ctx cancellation; a started group always settles.
func (b *BatchService) runGroup(ctx context.Context, logger *slog.Logger, group []string) []model.SyncOutcome {
	outcomes := make([]model.SyncOutcome, len(group))
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	for i, name := range group {
		g.Go(func() error {
			outcomes[i] = b.syncOne(ctx, logger, name)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (b *BatchService) syncOne(ctx context.Context, logger *slog.Logger, name string) (out model.SyncOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("asset sync panicked", "asset", name, "panic", r)
			out = failedOutcome(name, fmt.Errorf("panic: %v", r))
		}
	}()

	outcome, err := b.syncer.SyncAsset(ctx, name)
	if err != nil {
		logger.Error("asset sync failed", "asset", name, "error", err)
		return failedOutcome(name, err)
	}
	return outcome
}

func failedOutcome(name string, err error) model.SyncOutcome {
	return model.SyncOutcome{
		AssetName: name,
		Status:    model.SyncStatusFailed,
		Attempted: []model.Source{},
		Path:      []model.SyncState{},
		Error:     err.Error(),
		Message:   fmt.Sprintf("%s could not be refreshed: %s", name, err),
	}
}

func cancelledOutcome(name string, err error) model.SyncOutcome {
	o := failedOutcome(name, err)
	o.Message = fmt.Sprintf("%s not refreshed: run cancelled", name)
	return o
}

// LastReport returns the most recent completed run, or nil.
func (b *BatchService) LastReport() *model.BatchReport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return nil
	}
	r := *b.last
	return &r
}
