package monitoring

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedChecker struct {
	results chan bool
}

func (s *scriptedChecker) HealthCheck(context.Context) bool {
	return <-s.results
}

func TestMonitorClassifierHealth(t *testing.T) {
	clock := clockwork.NewFakeClock()
	checker := &scriptedChecker{results: make(chan bool)}
	healthy := &atomic.Bool{}
	healthy.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		MonitorClassifierHealth(ctx, clock, 15*time.Second, checker, healthy)
		close(done)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(15 * time.Second)
	checker.results <- false
	assert.Eventually(t, func() bool { return !healthy.Load() }, time.Second, 10*time.Millisecond)

	clock.Advance(15 * time.Second)
	checker.results <- true
	assert.Eventually(t, healthy.Load, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
