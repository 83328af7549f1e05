package agent

import (
	"time"

	"github.com/adhocore/gronx"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
)

// NextDelay decides how long to wait before the next attempt. Pure: same
// outcome and config always give the same answer.
func NextDelay(status prob.RunStatus, cfg Config) time.Duration {
	if status == prob.RunFinishedSuccess {
		return cfg.Interval()
	}

	return cfg.RetryInterval()
}

// ShouldTerminate reports whether the consecutive-failure budget is spent.
func ShouldTerminate(consecutiveFailures int, cfg Config) bool {
	return consecutiveFailures >= cfg.RetryCount
}

// NextCronDelay computes the wait until the next tick of a cron schedule,
// relative to the given instant.
func NextCronDelay(schedule string, now time.Time) (time.Duration, error) {
	next, err := gronx.NextTickAfter(schedule, now, false)
	if err != nil {
		return 0, err
	}

	return next.Sub(now), nil
}
