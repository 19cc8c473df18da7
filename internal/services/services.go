package services

import "time"

// DefaultTimeout bounds each service call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
