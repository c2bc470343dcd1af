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

// Package netshutdown implements the shutdown coordinator: a broadcast
// cancellation signal, an in-flight task counter, and the one-way state
// machine Armed -> ShuttingDownGraceful -> ForcedCancellation -> Terminated.
package netshutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	libatm "github.com/silent-rs/silent/atomic"
)

// State is one point in the coordinator's one-way state machine.
type State uint32

const (
	Armed State = iota
	ShuttingDownGraceful
	ForcedCancellation
	Terminated
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case ShuttingDownGraceful:
		return "shutting-down-graceful"
	case ForcedCancellation:
		return "forced-cancellation"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Coordinator is the shutdown coordinator described by the core's design:
// a single shutdown trigger shared by every listener, every per-connection
// task and the rate-limiter refill task, plus a scope-guard counter of
// in-flight tasks.
type Coordinator struct {
	graceWait time.Duration
	onShutdown func()

	triggerOnce sync.Once
	triggered   chan struct{}

	state libatm.Value[uint32]

	inflight libatm.Value[int64]
	drained  chan struct{}
	drainedOnce sync.Once

	forceOnce sync.Once
	forced    chan struct{}

	sigCh chan os.Signal
}

// New returns an armed Coordinator with the given grace_wait deadline.
func New(graceWait time.Duration) *Coordinator {
	c := &Coordinator{
		graceWait: graceWait,
		triggered: make(chan struct{}),
		drained:   make(chan struct{}),
		forced:    make(chan struct{}),
		state:     libatm.NewValue[uint32](),
		inflight:  libatm.NewValue[int64](),
	}
	c.state.Store(uint32(Armed))
	return c
}

// SetShutdownCallback registers the FnOnce() invoked exactly once, the
// first time shutdown is observed, before the drain begins.
func (c *Coordinator) SetShutdownCallback(fn func()) {
	c.onShutdown = fn
}

// ListenSignals installs the interrupt handler on all platforms and the
// termination handler on non-Windows platforms, converging both onto
// Trigger. No custom signals are intercepted.
func (c *Coordinator) ListenSignals() {
	c.sigCh = make(chan os.Signal, 1)
	signal.Notify(c.sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case _, ok := <-c.sigCh:
			if ok {
				c.Trigger()
			}
		case <-c.triggered:
		}
	}()
}

// Done returns the broadcast cancellation observer: closed exactly once,
// the first time shutdown is triggered by any source. The accept loop uses
// this to stop calling Listeners.accept.
func (c *Coordinator) Done() <-chan struct{} {
	return c.triggered
}

// Forced returns the observer that fires only when Drain moves the
// coordinator to ForcedCancellation (grace_wait expired, or Drain's ctx was
// cancelled first). Per-connection tasks
// that want to be cancellation-safe should select on this (not on Done) so
// they keep running during the graceful drain window and only get
// interrupted once the deadline is blown.
func (c *Coordinator) Forced() <-chan struct{} {
	return c.forced
}

// Triggered reports whether shutdown has been requested.
func (c *Coordinator) Triggered() bool {
	select {
	case <-c.triggered:
		return true
	default:
		return false
	}
}

// Trigger requests shutdown. Idempotent: the second and later calls are
// no-ops, matching the round-trip law that triggering N times equals
// triggering once.
func (c *Coordinator) Trigger() {
	c.triggerOnce.Do(func() {
		if c.sigCh != nil {
			signal.Stop(c.sigCh)
		}
		if c.onShutdown != nil {
			c.onShutdown()
		}
		c.state.CompareAndSwap(uint32(Armed), uint32(ShuttingDownGraceful))
		close(c.triggered)
	})
}

// State returns the coordinator's current position in the one-way state
// machine.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// addInflight applies delta to the in-flight counter via a compare-and-swap
// retry loop, since Value[T] exposes Load/Store/CompareAndSwap but no
// fetch-and-add.
func (c *Coordinator) addInflight(delta int64) int64 {
	for {
		old := c.inflight.Load()
		next := old + delta
		if c.inflight.CompareAndSwap(old, next) {
			return next
		}
	}
}

// TaskStarted registers a spawned per-connection task (counter++). Call the
// returned func on task completion; it is safe to call via defer so the
// decrement fires even on panic or cancellation (RAII-style scope guard).
func (c *Coordinator) TaskStarted() (done func()) {
	c.addInflight(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			if c.addInflight(-1) == 0 {
				c.drainedOnce.Do(func() { close(c.drained) })
			}
		})
	}
}

// InFlight returns the number of spawned handler tasks that have not yet
// returned.
func (c *Coordinator) InFlight() int64 {
	return c.inflight.Load()
}

// Drain waits up to grace_wait for the in-flight counter to reach zero.
// If the deadline expires first, or ctx is cancelled first, it transitions
// to ForcedCancellation and closes Forced, then keeps waiting until the
// counter reaches zero, moves to Terminated and returns false. If the
// counter was already zero, or reaches zero before the deadline, it returns
// true and moves straight to Terminated.
func (c *Coordinator) Drain(ctx context.Context) bool {
	if c.inflight.Load() == 0 {
		c.drainedOnce.Do(func() { close(c.drained) })
	}

	var timer *time.Timer
	var waitC <-chan time.Time
	if c.graceWait > 0 {
		timer = time.NewTimer(c.graceWait)
		defer timer.Stop()
		waitC = timer.C
	}

	select {
	case <-c.drained:
		c.state.Store(uint32(Terminated))
		return true
	case <-waitC:
		c.force()
		<-c.drained
		c.state.Store(uint32(Terminated))
		return false
	case <-ctx.Done():
		c.force()
		<-c.drained
		c.state.Store(uint32(Terminated))
		return false
	}
}

func (c *Coordinator) force() {
	c.state.Store(uint32(ForcedCancellation))
	c.forceOnce.Do(func() { close(c.forced) })
}
