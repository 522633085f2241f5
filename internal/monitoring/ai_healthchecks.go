package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const HEALTHCHECK_TIMEOUT = 5 * time.Second

type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// MonitorClassifierHealth probes the classifier on every tick until ctx is
// done and stores the latest answer in healthy.
func MonitorClassifierHealth(ctx context.Context, clock clockwork.Clock, interval time.Duration, checker HealthChecker, healthy *atomic.Bool) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			checkCtx, cancel := context.WithTimeout(ctx, HEALTHCHECK_TIMEOUT)
			isHealthy := checker.HealthCheck(checkCtx)
			cancel()

			if healthy.Swap(isHealthy) != isHealthy {
				if isHealthy {
					slog.Info("[HealthCheck] Classifier recovered")
				} else {
					slog.Warn("[HealthCheck] Classifier is unhealthy")
				}
			}
		}
	}
}
