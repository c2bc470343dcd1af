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

// Package netserver assembles the generic network server core: admission
// control, fair multiplexed accept, dispatch to a user handler and
// coordinated graceful shutdown, built on top of netlisten, netratelimit,
// netshutdown and netservice. It never parses a protocol byte itself.
package netserver

import (
	"net"
	"time"

	liberr "github.com/silent-rs/silent/errors"
	libpool "github.com/silent-rs/silent/errors/pool"
	libprm "github.com/silent-rs/silent/file/perm"
	"github.com/silent-rs/silent/netlisten"
	"github.com/silent-rs/silent/netlisten/tcp"
	"github.com/silent-rs/silent/netlisten/unix"
	libptc "github.com/silent-rs/silent/network/protocol"
)

// tcpBind and unixBind are the deferred bind requests accumulated by the
// Builder; they are only resolved into real listeners inside Build, so a
// Builder can be constructed, inspected and discarded without ever touching
// a socket. TLS wrapping and hybrid QUIC+TCP binding go through the Listen
// escape hatch below, built ahead of time with netlisten/tls or
// netlisten/hybrid.
type tcpBind struct {
	network libptc.NetworkProtocol
	address string
}

type unixBind struct {
	path string
	perm libprm.Perm
}

// Config is the fully-resolved, validated server configuration produced by
// Builder.Build. It is immutable once constructed.
type Config struct {
	binds     []tcpBind
	unixBinds []unixBind
	custom    []netlisten.Listen

	onListen func([]net.Addr)

	RateLimiter *RateLimiterConfig
	Shutdown    ShutdownConfig

	shutdownCallback func()

	requireExplicitBind bool
}

// Builder assembles a Config through a fluent chain, mirroring the
// teacher's pool-config builder pattern: each With*/Bind* call mutates and
// returns the same *Builder so calls compose into one expression.
type Builder struct {
	cfg Config
}

// New returns an empty Builder. Calling Build on it with no further chained
// calls yields a Config whose single listener is the default loopback
// entry inserted by the finalization rule.
func New() *Builder {
	return &Builder{}
}

// Bind queues a TCP bind request for network ("tcp", "tcp4" or "tcp6") and
// address (host:port, port may be 0 for an OS-assigned port).
func (b *Builder) Bind(network libptc.NetworkProtocol, address string) *Builder {
	b.cfg.binds = append(b.cfg.binds, tcpBind{network: network, address: address})
	return b
}

// BindUnix queues a Unix domain socket bind request at path. When perm is
// non-zero the socket file mode is set after bind.
func (b *Builder) BindUnix(path string, perm libprm.Perm) *Builder {
	b.cfg.unixBinds = append(b.cfg.unixBinds, unixBind{path: path, perm: perm})
	return b
}

// Listen registers an already-constructed Listen implementation verbatim,
// the escape hatch for TLS-wrapped, hybrid QUIC+TCP or any caller-supplied
// listener the core does not construct itself.
func (b *Builder) Listen(l netlisten.Listen) *Builder {
	b.cfg.custom = append(b.cfg.custom, l)
	return b
}

// OnListen registers a callback invoked when Serve starts, before the accept
// loop runs, with the local addresses of every listener Build bound. Binds
// that failed in Build are not included.
func (b *Builder) OnListen(fn func([]net.Addr)) *Builder {
	b.cfg.onListen = fn
	return b
}

// WithRateLimiter enables admission control: capacity is the token-bucket
// burst size, refillInterval the tick at which one permit is restored, and
// maxWait how long Acquire blocks before rejecting with a timeout outcome.
func (b *Builder) WithRateLimiter(capacity int, refillInterval, maxWait time.Duration) *Builder {
	b.cfg.RateLimiter = &RateLimiterConfig{
		Capacity:       capacity,
		RefillInterval: refillInterval,
		MaxWait:        maxWait,
	}
	return b
}

// WithShutdown sets the grace_wait deadline the coordinator waits for
// in-flight handler tasks to finish before forcing cancellation.
func (b *Builder) WithShutdown(graceWait time.Duration) *Builder {
	b.cfg.Shutdown = ShutdownConfig{GraceWait: graceWait}
	return b
}

// SetShutdownCallback registers the FnOnce() invoked the first time
// shutdown is observed, before the drain begins.
func (b *Builder) SetShutdownCallback(fn func()) *Builder {
	b.cfg.shutdownCallback = fn
	return b
}

// RequireExplicitBind disables the finalization rule: Build fails instead
// of inserting a default loopback listener when no binding was declared.
func (b *Builder) RequireExplicitBind() *Builder {
	b.cfg.requireExplicitBind = true
	return b
}

// Validate runs struct-tag validation over the accumulated configuration
// without resolving any bind request into a real socket.
func (b *Builder) Validate() liberr.Error {
	return b.cfg.Validate()
}

func defaultLoopbackBind() tcpBind {
	return tcpBind{network: libptc.NetworkTCP4, address: "127.0.0.1:0"}
}

// Build resolves every queued bind request into a real listener, applies
// the finalization rule, and returns a ready-to-run *NetServer. It never
// starts the accept loop; call Run or Serve for that.
func (b *Builder) Build() (*NetServer, liberr.Error) {
	if e := b.cfg.Validate(); e != nil {
		return nil, e
	}

	binds := b.cfg.binds
	if len(binds) == 0 && len(b.cfg.unixBinds) == 0 && len(b.cfg.custom) == 0 {
		binds = []tcpBind{defaultLoopbackBind()}
	}

	var members []netlisten.Listen
	bindFailures := libpool.New()

	for _, bnd := range binds {
		l, e := tcp.New(bnd.network, bnd.address)
		if e != nil {
			bindFailures.Add(e)
			continue
		}
		members = append(members, l)
	}

	for _, ub := range b.cfg.unixBinds {
		l, e := unix.New(ub.path, ub.perm)
		if e != nil {
			bindFailures.Add(e)
			continue
		}
		members = append(members, l)
	}

	members = append(members, b.cfg.custom...)

	if len(members) == 0 {
		return nil, ErrorNoListenerBound.Error(bindFailures.Error())
	}

	return newServer(&b.cfg, members), nil
}
