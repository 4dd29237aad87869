package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// QRTimer bounds the wait for a QR code. At most one timer is live.
//
// Each Arm returns a token. A timer callback that races a Disarm or a later
// Arm carries a stale token and is rejected by Fired.
type QRTimer struct {
	clock   clockwork.Clock
	timeout time.Duration

	mu    sync.Mutex
	timer clockwork.Timer
	token uint64
}

// NewQRTimer creates a disarmed controller.
func NewQRTimer(clock clockwork.Clock, timeout time.Duration) *QRTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &QRTimer{clock: clock, timeout: timeout}
}

// Arm starts the timer, stopping any previous one. onTimeout receives the
// token of the timer that fired and runs on the clock's goroutine.
func (q *QRTimer) Arm(onTimeout func(token uint64)) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.timer != nil {
		q.timer.Stop()
	}

	q.token++
	token := q.token
	q.timer = q.clock.AfterFunc(q.timeout, func() { onTimeout(token) })
	return token
}

// Disarm stops the timer. Safe when already disarmed.
func (q *QRTimer) Disarm() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// Armed reports whether a timer is live.
func (q *QRTimer) Armed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.timer != nil
}

// Fired consumes a fire notification. It returns true only if token belongs
// to the currently armed timer, which is then considered spent.
func (q *QRTimer) Fired(token uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.timer == nil || token != q.token {
		return false
	}
	q.timer = nil
	return true
}
