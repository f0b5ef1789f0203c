package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rhaddadin/remitjo/internal/observability"
	"github.com/rhaddadin/remitjo/internal/service"
	"go.uber.org/zap"
)

// ExpiryWorker sweeps transactions stranded in pending: hosted checkout
// sessions expire upstream, and the expiry webhook can be lost. The sweep
// goes through the store's pending-only conditional write, so it can never
// touch a transaction the reconciler already settled.
type ExpiryWorker struct {
	store      service.TransactionStore
	interval   time.Duration
	sessionTTL time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewExpiryWorker constructs a worker with a default 10 minute sweep and a
// 24h session TTL.
func NewExpiryWorker(store service.TransactionStore) *ExpiryWorker {
	return &ExpiryWorker{
		store:      store,
		interval:   10 * time.Minute,
		sessionTTL: 24 * time.Hour,
		stopCh:     make(chan struct{}),
	}
}

// WithInterval updates the sweep interval.
func (w *ExpiryWorker) WithInterval(interval time.Duration) *ExpiryWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithSessionTTL updates how long a transaction may stay pending.
func (w *ExpiryWorker) WithSessionTTL(ttl time.Duration) *ExpiryWorker {
	if ttl > 0 {
		w.sessionTTL = ttl
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *ExpiryWorker) Start(ctx context.Context) {
	zap.L().Info("expiry worker starting",
		zap.Duration("interval", w.interval),
		zap.Duration("session_ttl", w.sessionTTL))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("expiry worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("expiry worker stop signal received")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *ExpiryWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *ExpiryWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// RunOnce performs a single sweep.
func (w *ExpiryWorker) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-w.sessionTTL)
	n, err := w.store.ExpireStale(ctx, cutoff)
	if err != nil {
		observability.IncrementWorkerRun("expiry", "failed")
		zap.L().Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("expired stale pending transactions", zap.Int64("count", n))
	}
	observability.IncrementWorkerRun("expiry", "success")
}
