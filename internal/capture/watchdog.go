package capture

import (
	"context"
	"fmt"
	"time"

	"reel/internal/logging"
)

// watchdog ticks on a fixed interval and feeds the shared failure counter
// whenever capture has not completed a segment within the stall threshold.
// The heartbeat is not reset on a stalled tick; a dead source accumulates
// one failure per tick until the threshold aborts the session.
func (s *Session) watchdog(ctx context.Context) {
	defer s.wg.Done()

	interval := s.cfg.WatchdogInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			running := s.running
			idle := s.clock().Sub(s.heartbeat)
			s.mu.Unlock()
			if !running {
				return
			}
			if idle <= s.cfg.StallThreshold {
				continue
			}
			count, fatal := s.recordFailure("capture stalled", fmt.Errorf("no completed segment for %s", idle.Round(time.Second)))
			if fatal {
				return
			}
			s.logger.Warn("capture stalled",
				logging.Duration("idle", idle),
				logging.Int("consecutive_failures", count),
				logging.Int("failure_threshold", s.cfg.FailureThreshold))
		}
	}
}
