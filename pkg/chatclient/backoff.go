package chatclient

import (
	"math/rand"
	"time"
)

// Backoff computes reconnect delays: exponential growth from Base up to
// the Cap, with a little jitter so a fleet of tabs does not reconnect in
// lockstep.
type Backoff struct {
	Base    time.Duration
	Cap     time.Duration
	attempt int
}

func NewBackoff(base, cap time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if cap <= 0 {
		cap = 30 * time.Second
	}
	return &Backoff{Base: base, Cap: cap}
}

// Next returns the delay before the upcoming attempt and advances the
// counter.
func (b *Backoff) Next() time.Duration {
	shift := b.attempt
	if shift > 16 {
		shift = 16
	}
	d := b.Base << shift
	if d > b.Cap || d <= 0 {
		d = b.Cap
	}
	b.attempt++
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// Attempts reports how many delays have been handed out since the last
// reset.
func (b *Backoff) Attempts() int {
	return b.attempt
}

// Reset is called after a successful identify so the next outage starts
// from the base delay again.
func (b *Backoff) Reset() {
	b.attempt = 0
}
