package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/observability"
	"github.com/tonfarm/farmledger/internal/service"
)

// BonusWorker credits the periodic login bonus in the background. The
// ledger's repeatable duplicate check keeps overlapping runs from
// double-crediting.
type BonusWorker struct {
	svc       *service.BonusService
	interval  time.Duration
	batchSize int32
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewBonusWorker constructs a worker with a default daily interval.
func NewBonusWorker(svc *service.BonusService) *BonusWorker {
	return &BonusWorker{
		svc:       svc,
		interval:  24 * time.Hour,
		batchSize: 100,
		stopCh:    make(chan struct{}),
	}
}

// WithInterval updates the grant interval.
func (w *BonusWorker) WithInterval(interval time.Duration) *BonusWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithBatchSize sets how many accounts are visited per query.
func (w *BonusWorker) WithBatchSize(size int32) *BonusWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks and grants bonuses at the configured interval.
func (w *BonusWorker) Start(ctx context.Context) {
	zap.L().Info("bonus worker starting",
		zap.Duration("interval", w.interval),
		zap.Int32("batch", w.batchSize))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("bonus worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("bonus worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *BonusWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *BonusWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// GrantOnce runs a single grant pass immediately.
func (w *BonusWorker) GrantOnce(ctx context.Context) error {
	return w.svc.GrantAll(ctx, w.batchSize)
}

func (w *BonusWorker) runOnce(ctx context.Context) {
	if err := w.svc.GrantAll(ctx, w.batchSize); err != nil {
		observability.IncrementWorkerRun("daily_bonus", "failed")
		zap.L().Error("bonus run failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("daily_bonus", "success")
}
