package push

import (
	"time"
)

// reconnect spaces connection attempts: After fires timeout after the
// reconnect was created, or immediately if that time has already passed.
type reconnect struct {
	startTime time.Time
	timeout   time.Duration
}

func newReconnect(timeout time.Duration) *reconnect {
	return &reconnect{
		startTime: time.Now(),
		timeout:   timeout,
	}
}

func (r *reconnect) After() <-chan time.Time {
	remaining := r.timeout - time.Since(r.startTime)
	if remaining <= 0 {
		c := make(chan time.Time, 1)
		c <- time.Now()
		return c
	}
	return time.After(remaining)
}
