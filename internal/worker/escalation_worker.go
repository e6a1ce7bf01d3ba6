package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/appeal-service/internal/service"
)

// EscalationWorker periodically runs the overdue-appeal sweep.
type EscalationWorker struct {
	escalations *service.EscalationService
	interval    time.Duration
	logger      *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewEscalationWorker creates the worker.
func NewEscalationWorker(escalations *service.EscalationService, interval time.Duration, logger *zap.Logger) *EscalationWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationWorker{
		escalations: escalations,
		interval:    interval,
		logger:      logger,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs after one full
// interval so startup traffic settles first.
func (w *EscalationWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *EscalationWorker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *EscalationWorker) sweep(ctx context.Context) {
	count, err := w.escalations.EscalateOverdueAppeals(ctx)
	if err != nil {
		w.logger.Error("escalation sweep failed", zap.Error(err))
		return
	}
	w.logger.Debug("escalation sweep finished", zap.Int("escalated", count))
}

// Stop signals the loop to exit and waits for it to drain.
func (w *EscalationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	<-w.done
}
