package infra

import (
	"math/rand"
	"sync"
	"time"
)

// Backoff produces jittered exponential delays for the outer retry loops
// (failed scrape cycles, broker reconnects). Reset after a successful run.
type Backoff struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	multiplier float64
	current    time.Duration
	mu         sync.Mutex
}

func NewBackoff(min, max time.Duration, mult float64) *Backoff {
	return &Backoff{
		minDelay:   min,
		maxDelay:   max,
		multiplier: mult,
		current:    min,
	}
}

func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	jitterFactor := rand.Float64()*0.4 - 0.2
	jitter := time.Duration(jitterFactor * float64(b.current))
	wait := max(b.current+jitter, b.minDelay)

	b.current = min(time.Duration(float64(b.current)*b.multiplier), b.maxDelay)

	return wait
}

func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.minDelay
}
