/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package netratelimit implements the admission-control token bucket
// between accept and dispatch: capacity, refill_interval, max_wait.
//
// The steady-state rate is exactly 1/refill_interval with burst up to
// capacity; unlike golang.org/x/time/rate's continuous trickle, a single
// background producer adds exactly one permit per tick, which is what makes
// the discrete boundary behaviors ("capacity=5 admits exactly 5 bursts")
// exact rather than approximate.
package netratelimit

import (
	"context"
	"sync"
	"time"
)

// Outcome is the result of an Acquire call.
type Outcome uint8

const (
	Admitted Outcome = iota
	RejectedClosed
	RejectedTimeout
)

// Limiter is the token-bucket admission controller.
type Limiter interface {
	Acquire(ctx context.Context) Outcome
	Close()
}

type limiter struct {
	capacity int
	maxWait  time.Duration

	mu      sync.Mutex
	permits int

	stop     chan struct{}
	stopOnce sync.Once
}

// New starts the background refill producer and returns a Limiter. capacity
// must be >= 1; refillInterval is the tick at which one permit is added
// (never exceeding capacity); maxWait bounds how long Acquire waits for a
// permit before returning RejectedTimeout.
func New(capacity int, refillInterval, maxWait time.Duration) Limiter {
	if capacity < 1 {
		capacity = 1
	}

	l := &limiter{
		capacity: capacity,
		maxWait:  maxWait,
		permits:  capacity,
		stop:     make(chan struct{}),
	}

	go l.refill(refillInterval)

	return l
}

func (l *limiter) refill(interval time.Duration) {
	if interval <= 0 {
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.mu.Lock()
			if l.permits < l.capacity {
				l.permits++
			}
			l.mu.Unlock()
		}
	}
}

func (l *limiter) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.permits > 0 {
		l.permits--
		return true
	}
	return false
}

func (l *limiter) Acquire(ctx context.Context) Outcome {
	select {
	case <-l.stop:
		return RejectedClosed
	default:
	}

	if l.tryAcquire() {
		return Admitted
	}

	var wait <-chan time.Time
	if l.maxWait > 0 {
		timer := time.NewTimer(l.maxWait)
		defer timer.Stop()
		wait = timer.C
	} else {
		// max_wait = 0: do not wait at all, per the spec's boundary
		// behavior (capacity exhausted admits a zero-wait reject).
		return RejectedTimeout
	}

	poll := time.NewTicker(5 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-l.stop:
			return RejectedClosed
		case <-ctx.Done():
			return RejectedClosed
		case <-wait:
			return RejectedTimeout
		case <-poll.C:
			if l.tryAcquire() {
				return Admitted
			}
		}
	}
}

func (l *limiter) Close() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}
