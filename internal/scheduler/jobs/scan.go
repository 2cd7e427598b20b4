package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/qlab/tickscan/internal/batch"
	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/internal/market"
	"github.com/qlab/tickscan/internal/store"
	"github.com/qlab/tickscan/pkg/logger"
)

// ScanJob runs the daily ranking pass, notifies subscribers and optionally
// persists the snapshot. It fires late in the afternoon session so the
// closing-window features have data to work with.
type ScanJob struct {
	orchestrator *batch.Orchestrator
	sink         contracts.NotificationSink
	rankings     *store.Rankings // nil when persistence is not configured
	schedule     string
	logger       *logger.Logger
}

// NewScanJob creates the scheduled ranking job.
func NewScanJob(o *batch.Orchestrator, sink contracts.NotificationSink, rankings *store.Rankings, schedule string, log *logger.Logger) *ScanJob {
	return &ScanJob{
		orchestrator: o,
		sink:         sink,
		rankings:     rankings,
		schedule:     schedule,
		logger:       log,
	}
}

// Name returns the job name.
func (j *ScanJob) Name() string {
	return "intraday_scan"
}

// Schedule returns the cron expression.
func (j *ScanJob) Schedule() string {
	return j.schedule
}

// Run executes one full ranking pass. A pass that drops every instrument is
// not an error; the notification is skipped instead.
func (j *ScanJob) Run(ctx context.Context) error {
	if !market.TradingDay(time.Now()) {
		j.logger.Info("Not a trading day, skipping scan")
		return nil
	}

	snapshot, err := j.orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("ranking pass: %w", err)
	}

	if len(snapshot.Stocks) == 0 {
		j.logger.Warn("Every instrument failed this pass, skipping notification")
		return nil
	}

	if j.rankings != nil {
		if err := j.rankings.SaveSnapshot(ctx, snapshot); err != nil {
			// Persistence trouble must not block the notification.
			j.logger.WithError(err).Error("Failed to persist ranking snapshot")
		}
	}

	if j.sink != nil {
		if err := j.sink.Send(ctx, snapshot); err != nil {
			return fmt.Errorf("send notification: %w", err)
		}
	}

	return nil
}
