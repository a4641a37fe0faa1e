package timer

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestScheduleFiresAfterDuration(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock)

	tok := tm.Schedule(10 * time.Second)

	select {
	case <-tm.Fired():
		t.Fatalf("token should not fire before its duration elapses")
	default:
	}

	mock.Add(10 * time.Second)

	select {
	case got := <-tm.Fired():
		if got != tok {
			t.Fatalf("expected token %v, got %v", tok, got)
		}
	case <-time.After(time.Second):
		t.Fatalf("token did not fire")
	}
}

func TestCancelSuppressesFiring(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock)

	tok := tm.Schedule(5 * time.Second)
	tm.Cancel(tok)
	mock.Add(5 * time.Second)

	select {
	case got := <-tm.Fired():
		t.Fatalf("cancelled token should not fire, got %v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTokensAreUnique(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock)
	a := tm.Schedule(time.Second)
	b := tm.Schedule(time.Second)
	if a == b {
		t.Fatalf("distinct schedule calls must return distinct tokens")
	}
}
