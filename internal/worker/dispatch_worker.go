package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/service"
)

// StartDispatchWorker runs periodic dispatch passes until ctx is cancelled.
// Enqueue-triggered passes run independently; the lease in the notification
// service keeps overlapping passes from double-sending.
func StartDispatchWorker(ctx context.Context, notifications *service.NotificationService, interval time.Duration, logger *zap.Logger) {
	if notifications == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("dispatch worker started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("dispatch worker stopped")
				return
			case <-ticker.C:
				if err := notifications.DispatchPending(ctx); err != nil {
					logger.Warn("scheduled dispatch pass failed", zap.Error(err))
				}
			}
		}
	}()
}
