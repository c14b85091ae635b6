package main

import (
	"math/rand/v2"
	"time"
)

const jitterWindow = 250 * time.Millisecond

// backoff doubles from base up to max after each failed batch and returns
// to base after a success.
type backoff struct {
	base, max, cur time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	if max < base {
		max = base
	}
	return &backoff{base: base, max: max, cur: base}
}

func (b *backoff) fail() time.Duration {
	b.cur = min(b.cur*2, b.max)
	return b.cur
}

func (b *backoff) reset() time.Duration {
	b.cur = b.base
	return b.cur
}

// jitter spreads several publishers polling the same table.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
