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

package netserver

import (
	"context"
	"net"
	"time"

	libatm "github.com/silent-rs/silent/atomic"
	liberr "github.com/silent-rs/silent/errors"
	"github.com/silent-rs/silent/netconn"
	"github.com/silent-rs/silent/netlisten"
	"github.com/silent-rs/silent/netlisten/aggregate"
	liblog "github.com/silent-rs/silent/logger"
	loglvl "github.com/silent-rs/silent/logger/level"
	"github.com/silent-rs/silent/netpeer"
	"github.com/silent-rs/silent/netratelimit"
	"github.com/silent-rs/silent/netserver/observability"
	"github.com/silent-rs/silent/netservice"
	"github.com/silent-rs/silent/netshutdown"
)

// Stats is a read-only snapshot of the counters the core maintains across
// its lifetime, taken lock-free at call time. It never blocks the accept
// loop or a dispatched task.
type Stats struct {
	AcceptOK           int64
	AcceptErr          int64
	RateLimiterClosed  int64
	RateLimiterTimeout int64
	HandlerOK          int64
	HandlerErr         int64
	ShutdownGraceful   int64
	ShutdownForced     int64
	InFlight           int64
}

// NetServer composes Listeners, the rate limiter, the shutdown coordinator
// and a ConnectionService into the accept-dispatch loop described by the
// core's design, and exposes the two run entry points.
type NetServer struct {
	agg     *aggregate.Aggregate
	limiter netratelimit.Limiter
	coord   *netshutdown.Coordinator
	log     liblog.Logger
	metrics *observability.Metrics

	onListen func([]net.Addr)

	acceptOK, acceptErr               libatm.Value[int64]
	rlClosed, rlTimeout               libatm.Value[int64]
	handlerOK, handlerErr             libatm.Value[int64]
	shutdownGraceful, shutdownForced  libatm.Value[int64]

	running libatm.Value[bool]
}

// addCounter applies delta to an int64 Value via a compare-and-swap retry
// loop, mirroring netshutdown.Coordinator's in-flight counter: Value[T]
// exposes Load/Store/CompareAndSwap but no fetch-and-add.
func addCounter(v libatm.Value[int64], delta int64) int64 {
	for {
		old := v.Load()
		next := old + delta
		if v.CompareAndSwap(old, next) {
			return next
		}
	}
}

func newServer(cfg *Config, members []netlisten.Listen) *NetServer {
	coord := netshutdown.New(cfg.Shutdown.GraceWait)
	if cfg.shutdownCallback != nil {
		coord.SetShutdownCallback(cfg.shutdownCallback)
	}

	s := &NetServer{
		agg:      aggregate.New(members, coord.Done()),
		coord:    coord,
		log:      liblog.New(loglvl.InfoLevel),
		metrics:  observability.New(),
		onListen: cfg.onListen,

		acceptOK:          libatm.NewValue[int64](),
		acceptErr:         libatm.NewValue[int64](),
		rlClosed:          libatm.NewValue[int64](),
		rlTimeout:         libatm.NewValue[int64](),
		handlerOK:         libatm.NewValue[int64](),
		handlerErr:        libatm.NewValue[int64](),
		shutdownGraceful:  libatm.NewValue[int64](),
		shutdownForced:    libatm.NewValue[int64](),
		running:           libatm.NewValue[bool](),
	}

	if cfg.RateLimiter != nil {
		s.limiter = netratelimit.New(cfg.RateLimiter.Capacity, cfg.RateLimiter.RefillInterval, cfg.RateLimiter.MaxWait)
	}

	return s
}

// LocalAddrs returns the bound local addresses of every active listener, in
// bind order.
func (s *NetServer) LocalAddrs() []net.Addr {
	return s.agg.LocalAddrs()
}

// Stats returns a lock-free snapshot of the server's lifetime counters.
func (s *NetServer) Stats() Stats {
	return Stats{
		AcceptOK:           s.acceptOK.Load(),
		AcceptErr:          s.acceptErr.Load(),
		RateLimiterClosed:  s.rlClosed.Load(),
		RateLimiterTimeout: s.rlTimeout.Load(),
		HandlerOK:          s.handlerOK.Load(),
		HandlerErr:         s.handlerErr.Load(),
		ShutdownGraceful:   s.shutdownGraceful.Load(),
		ShutdownForced:     s.shutdownForced.Load(),
		InFlight:           s.coord.InFlight(),
	}
}

// Shutdown requests graceful shutdown explicitly, equivalent to an
// external interrupt signal firing. Idempotent.
func (s *NetServer) Shutdown() {
	s.coord.Trigger()
}

// Run is the blocking entry point: it installs the interrupt/termination
// signal handlers, drives the accept-dispatch loop to completion and
// returns once the coordinator reaches Terminated. Suitable as main's last
// call.
func (s *NetServer) Run(handler netservice.ConnectionService) liberr.Error {
	s.coord.ListenSignals()
	return s.Serve(context.Background(), handler)
}

// Serve is the async-shaped entry point: it runs the accept-dispatch loop
// and the shutdown drain, returning only once the coordinator reaches
// Terminated. ctx cancellation is treated as an additional shutdown
// trigger, useful for embedding the server into an existing supervised
// runtime. Calling Serve while a previous call on the same NetServer is
// still running returns ErrorAlreadyRunning instead of blocking or racing
// it.
func (s *NetServer) Serve(ctx context.Context, handler netservice.ConnectionService) liberr.Error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrorAlreadyRunning.Error(nil)
	}
	defer s.running.Store(false)

	if s.onListen != nil {
		s.onListen(s.LocalAddrs())
	}

	go func() {
		select {
		case <-ctx.Done():
			s.coord.Trigger()
		case <-s.coord.Done():
		}
	}()

	s.acceptLoop(handler)

	if s.limiter != nil {
		s.limiter.Close()
	}

	if s.coord.Drain(ctx) {
		addCounter(s.shutdownGraceful, 1)
		s.metrics.IncShutdownGraceful()
	} else {
		addCounter(s.shutdownForced, 1)
		s.metrics.IncShutdownForced()
	}

	return nil
}

// acceptLoop is the single task the core's design reserves for Listeners.
// accept and rate-limiter acquisition; every admitted connection is
// dispatched to its own task and the loop immediately resumes accepting.
func (s *NetServer) acceptLoop(handler netservice.ConnectionService) {
	_, span := observability.StartSpan(context.Background(), "accept_loop")
	defer span.End()

	for {
		select {
		case <-s.coord.Done():
			return
		default:
		}

		conn, peer, err := s.agg.Accept()
		if err != nil {
			if err == aggregate.ErrShutdown {
				return
			}
			addCounter(s.acceptErr, 1)
			s.metrics.IncAcceptErr()
			s.log.Entry(loglvl.WarnLevel, "accept error").Field("error", err.Error()).Log()
			continue
		}

		addCounter(s.acceptOK, 1)
		s.metrics.IncAcceptOK()

		if s.limiter != nil {
			acquireCtx, cancelAcquire := context.WithCancel(context.Background())
			go func() {
				select {
				case <-s.coord.Done():
					cancelAcquire()
				case <-acquireCtx.Done():
				}
			}()
			outcome := s.limiter.Acquire(acquireCtx)
			cancelAcquire()
			switch outcome {
			case netratelimit.RejectedClosed:
				addCounter(s.rlClosed, 1)
				s.metrics.IncRateLimiterClosed()
				_ = conn.Close()
				continue
			case netratelimit.RejectedTimeout:
				addCounter(s.rlTimeout, 1)
				s.metrics.IncRateLimiterTimeout()
				_ = conn.Close()
				continue
			}
		}

		done := s.coord.TaskStarted()
		go s.dispatch(handler, conn, peer, done)
	}
}

// dispatch runs inside the spawned per-connection task: it invokes the
// handler, observes forced cancellation, and always deregisters the task
// on return regardless of how the handler exits.
func (s *NetServer) dispatch(handler netservice.ConnectionService, raw net.Conn, peer netpeer.Addr, done func()) {
	defer done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-s.coord.Forced():
			cancel()
		case <-ctx.Done():
		}
	}()

	_, span := observability.StartSpan(ctx, "dispatch")
	defer span.End()

	c := netconn.New(raw)

	start := time.Now()
	err := handler.Call(ctx, c, peer)
	s.metrics.ObserveHandlerDuration(time.Since(start))

	if err != nil {
		addCounter(s.handlerErr, 1)
		s.metrics.IncHandlerErr()
		s.log.Entry(loglvl.ErrorLevel, "handler error").
			Field("peer", peer.String()).
			ErrorAdd(false, err).
			Log()
		return
	}

	addCounter(s.handlerOK, 1)
	s.metrics.IncHandlerOK()
}
