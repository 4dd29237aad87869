package realtime

import "time"

// Policy is the fixed-interval reconnect policy with a cooldown after
// MaxAttempts consecutive failures.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
	Cooldown    time.Duration
}

// Next decides what to do after an abnormal close given the number of
// reconnect attempts already made. It returns the wait before the next
// dial and whether that wait is a cooldown. After a cooldown the caller
// resets attempts to 0 and asks again.
func (p Policy) Next(attempts int) (wait time.Duration, cooldown bool) {
	if attempts >= p.MaxAttempts {
		return p.Cooldown, true
	}
	return p.Interval, false
}
