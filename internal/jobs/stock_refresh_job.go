package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StockRefreshJobName is the name of the stock refresh job
const StockRefreshJobName = "stock_refresh"

// DefaultStockRefreshTimeout bounds one refresh run
const DefaultStockRefreshTimeout = 5 * time.Minute

// StockRefresher re-reads catalog stock for open comparisons.
// This interface allows the job to call the service without importing the service package directly.
type StockRefresher interface {
	RefreshStock(ctx context.Context) (int, error)
}

// StockRefreshJob keeps match confidence of confirmed items in line with
// current warehouse quantities
type StockRefreshJob struct {
	refresher StockRefresher
	logger    *zap.Logger
	timeout   time.Duration
}

// NewStockRefreshJob creates a new stock refresh job. A non-positive timeout
// uses DefaultStockRefreshTimeout.
func NewStockRefreshJob(refresher StockRefresher, logger *zap.Logger, timeout time.Duration) *StockRefreshJob {
	if timeout <= 0 {
		timeout = DefaultStockRefreshTimeout
	}
	return &StockRefreshJob{
		refresher: refresher,
		logger:    logger,
		timeout:   timeout,
	}
}

// Run executes one refresh. The scheduler supplies ctx with the job timeout
// already applied.
func (j *StockRefreshJob) Run(ctx context.Context) error {
	start := time.Now()
	changed, err := j.refresher.RefreshStock(ctx)
	if err != nil {
		return fmt.Errorf("stock refresh after %d changed items: %w", changed, err)
	}
	j.logger.Info("stock refresh job completed",
		zap.Int("items_changed", changed),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Timeout bounds a single run
func (j *StockRefreshJob) Timeout() time.Duration {
	return j.timeout
}

// RegisterStockRefreshJob registers the stock refresh job with the scheduler
func RegisterStockRefreshJob(scheduler *Scheduler, refresher StockRefresher, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewStockRefreshJob(refresher, logger, timeout)
	return scheduler.AddJob(StockRefreshJobName, cronExpr, job.Timeout(), job.Run)
}
