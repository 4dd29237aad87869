package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestQRTimer_Fires(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := NewQRTimer(fc, 30*time.Second)

	fired := make(chan uint64, 1)
	token := q.Arm(func(tok uint64) { fired <- tok })
	if !q.Armed() {
		t.Fatal("expected armed")
	}

	fc.Advance(29 * time.Second)
	select {
	case <-fired:
		t.Fatal("fired early")
	default:
	}

	fc.Advance(time.Second)
	select {
	case tok := <-fired:
		if tok != token {
			t.Errorf("token = %d, want %d", tok, token)
		}
		if !q.Fired(tok) {
			t.Error("Fired rejected the live token")
		}
		if q.Armed() {
			t.Error("spent timer still armed")
		}
		if q.Fired(tok) {
			t.Error("token consumed twice")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestQRTimer_DisarmCancelsTimer(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := NewQRTimer(fc, 30*time.Second)

	fired := make(chan uint64, 1)
	q.Arm(func(tok uint64) { fired <- tok })
	q.Disarm()
	q.Disarm()

	if q.Armed() {
		t.Error("expected disarmed")
	}

	fc.Advance(time.Minute)
	select {
	case <-fired:
		t.Error("disarmed timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQRTimer_StaleTokenRejected(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := NewQRTimer(fc, 30*time.Second)

	first := q.Arm(func(uint64) {})
	second := q.Arm(func(uint64) {})

	if first == second {
		t.Fatal("tokens must differ")
	}
	if q.Fired(first) {
		t.Error("superseded token accepted")
	}

	// A fire that raced a disarm
	q.Disarm()
	if q.Fired(second) {
		t.Error("token accepted after disarm")
	}
}

func TestQRTimer_OnlyOneLiveTimer(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := NewQRTimer(fc, 30*time.Second)

	fired := make(chan uint64, 3)
	for i := 0; i < 3; i++ {
		q.Arm(func(tok uint64) { fired <- tok })
	}

	fc.Advance(time.Minute)

	select {
	case tok := <-fired:
		if tok != 3 {
			t.Errorf("fired token = %d, want the last armed (3)", tok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	select {
	case tok := <-fired:
		t.Errorf("superseded timer %d fired", tok)
	case <-time.After(50 * time.Millisecond):
	}
}
