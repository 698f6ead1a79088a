package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter spaces out requests against retailer sites.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Jittered enforces a randomized delay between consecutive actions so
// rescrape passes do not hit a retailer at a fixed cadence.
type Jittered struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJittered(minDelay, maxDelay time.Duration) *Jittered {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Jittered{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Wait blocks until the randomized delay since the previous action has
// passed, or the context is cancelled.
func (j *Jittered) Wait(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	elapsed := time.Since(j.lastAction)
	delay := j.delay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	j.lastAction = time.Now()
	return nil
}

func (j *Jittered) delay() time.Duration {
	if j.minDelay == j.maxDelay {
		return j.minDelay
	}
	delta := j.maxDelay - j.minDelay
	return j.minDelay + time.Duration(rand.Int63n(int64(delta)))
}
