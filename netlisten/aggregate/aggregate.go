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

// Package aggregate owns a finite set of netlisten.Listen implementations
// and multiplexes accept across them fairly: one goroutine per listener
// polls independently and fans results into a single channel, so one fast
// or misbehaving listener can never starve the others. Each listener also
// carries its own exponential-backoff state, reset on every successful
// accept.
package aggregate

import (
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/silent-rs/silent/netlisten"
	"github.com/silent-rs/silent/netpeer"
)

// ErrShutdown is returned by Accept once the shutdown observer has fired
// and no further connections will be delivered.
var ErrShutdown = errors.New("aggregate: shutdown observed")

const (
	backoffBase = 100 * time.Millisecond
	backoffCap  = 1 * time.Second
)

type result struct {
	conn net.Conn
	peer netpeer.Addr
	err  error
}

// Aggregate is the Listeners aggregate of the core: an ordered list of
// active Listen implementations plus their bound local addresses.
type Aggregate struct {
	mu      sync.RWMutex
	members []netlisten.Listen
	addrs   []net.Addr

	results chan result
	done    <-chan struct{}

	group *errgroup.Group
	liveN int
}

// New wires up fan-in goroutines for every listener in members and begins
// polling immediately. shutdown is the coordinator's broadcast observer;
// once it fires, every per-listener goroutine stops after its current
// Accept call and Accept starts returning ErrShutdown.
func New(members []netlisten.Listen, shutdown <-chan struct{}) *Aggregate {
	var group errgroup.Group

	a := &Aggregate{
		members: members,
		addrs:   make([]net.Addr, len(members)),
		results: make(chan result),
		done:    shutdown,
		group:   &group,
		liveN:   len(members),
	}

	for i, l := range members {
		a.addrs[i] = l.Addr()
	}

	for i, l := range members {
		idx, ln := i, l
		a.group.Go(func() error {
			a.pump(idx, ln)
			return nil
		})
	}

	go func() {
		_ = a.group.Wait()
		close(a.results)
	}()

	return a
}

// LocalAddrs returns a read-only, stable-for-lifetime view over the bound
// local addresses. Callers cannot mutate the aggregate's internal vector
// through it.
func (a *Aggregate) LocalAddrs() []net.Addr {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]net.Addr, len(a.addrs))
	copy(out, a.addrs)
	return out
}

// Accept yields at most one connection per invocation. It returns
// ErrShutdown once the shutdown observer fires (never blocking past that
// point), and also once every member listener has stopped. A member's
// fatal Accept error is surfaced verbatim, once, after which that member
// stops polling; transient errors are absorbed by the member's own backoff
// loop, and errors classified as shutdown are not surfaced.
func (a *Aggregate) Accept() (net.Conn, netpeer.Addr, error) {
	select {
	case <-a.done:
		return nil, netpeer.Addr{}, ErrShutdown
	default:
	}

	select {
	case <-a.done:
		return nil, netpeer.Addr{}, ErrShutdown
	case r, ok := <-a.results:
		if !ok {
			return nil, netpeer.Addr{}, ErrShutdown
		}
		return r.conn, r.peer, r.err
	}
}

func (a *Aggregate) pump(idx int, l netlisten.Listen) {
	var errCount int

	for {
		select {
		case <-a.done:
			return
		default:
		}

		c, err := l.Accept()
		if err == nil {
			errCount = 0
			select {
			case a.results <- result{conn: c, peer: netpeer.FromNetAddr(c.RemoteAddr())}:
			case <-a.done:
				_ = c.Close()
				return
			}
			continue
		}

		switch netlisten.Classify(err) {
		case netlisten.KindShutdown:
			return
		case netlisten.KindFatal:
			select {
			case a.results <- result{err: err}:
			case <-a.done:
			}
			return
		default: // KindTransient
			errCount++
			shift := errCount - 1
			if shift > 8 {
				shift = 8
			}
			d := backoffBase << uint(shift)
			if d > backoffCap || d <= 0 {
				d = backoffCap
			}

			timer := time.NewTimer(d)
			select {
			case <-a.done:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}
