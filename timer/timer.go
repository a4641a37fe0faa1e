// Package timer schedules tokens to fire after a duration, integrating
// with a benbjohnson/clock.Clock so tests can drive virtual time instead
// of sleeping for real.
package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// Token uniquely identifies one scheduled firing, within a single Timer
// instance.
type Token uint64

// Timer schedules tokens and emits them on Fired when their duration
// elapses. Cancel stops a pending token from firing; an owner may also
// just discard a token it no longer cares about and ignore it when it
// fires.
type Timer struct {
	clock   clock.Clock
	next    uint64
	mu      sync.Mutex
	pending map[Token]*clock.Timer
	fired   chan Token
}

// New creates a Timer driven by clk (pass nil for the real wall clock).
func New(clk clock.Clock) *Timer {
	if clk == nil {
		clk = clock.New()
	}
	return &Timer{
		clock:   clk,
		pending: make(map[Token]*clock.Timer),
		fired:   make(chan Token, 64),
	}
}

// Schedule arranges for a fresh token to be emitted on Fired() after d
// elapses, and returns that token.
func (t *Timer) Schedule(d time.Duration) Token {
	tok := Token(atomic.AddUint64(&t.next, 1))

	t.mu.Lock()
	ct := t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		_, stillPending := t.pending[tok]
		delete(t.pending, tok)
		t.mu.Unlock()
		if stillPending {
			t.fired <- tok
		}
	})
	t.pending[tok] = ct
	t.mu.Unlock()

	return tok
}

// Cancel discards a previously scheduled token. It is a no-op if the
// token already fired or was never scheduled.
func (t *Timer) Cancel(tok Token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ct, ok := t.pending[tok]; ok {
		ct.Stop()
		delete(t.pending, tok)
	}
}

// Fired is the channel the owning event loop selects on alongside
// transport events and user actions.
func (t *Timer) Fired() <-chan Token {
	return t.fired
}
