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

// Package netconn wraps an accepted byte stream (TCP, Unix, TLS or hybrid)
// behind a single ownership contract: the dispatcher hands a Connection to
// exactly one handler task and keeps no reference afterwards.
package netconn

import (
	"net"

	"github.com/google/uuid"

	libctx "github.com/silent-rs/silent/context"
	"github.com/silent-rs/silent/netpeer"
)

// Connection is a unified ownership wrapper over an accepted byte stream.
// It exposes only what a protocol-agnostic handler needs: read, write,
// flush, half-close of the write side, identity, and a connection-scoped
// key/value store. No read/write deadlines are imposed here — timeouts are
// a protocol-layer concern.
type Connection interface {
	ID() uuid.UUID
	Peer() netpeer.Addr
	Local() netpeer.Addr

	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Flush() error
	CloseWrite() error
	Close() error

	// Store associates val with key for the lifetime of the connection.
	// A handler that hands the connection off across goroutines (e.g. a
	// protocol that multiplexes requests) can use this instead of
	// threading extra state through every call.
	Store(key string, val interface{})
	// Load returns the value previously Store'd under key, if any.
	Load(key string) (val interface{}, ok bool)
}

type writeCloser interface {
	CloseWrite() error
}

type flusher interface {
	Flush() error
}

type conn struct {
	id     uuid.UUID
	raw    net.Conn
	peer   netpeer.Addr
	loc    netpeer.Addr
	scoped libctx.Config[string]
}

// New wraps a raw net.Conn (as produced by any Listen implementation,
// including TLS- and hybrid-wrapped listeners) into a Connection.
func New(raw net.Conn) Connection {
	return &conn{
		id:     uuid.New(),
		raw:    raw,
		peer:   netpeer.FromNetAddr(raw.RemoteAddr()),
		loc:    netpeer.FromNetAddr(raw.LocalAddr()),
		scoped: libctx.New[string](nil),
	}
}

func (c *conn) ID() uuid.UUID {
	return c.id
}

func (c *conn) Peer() netpeer.Addr {
	return c.peer
}

func (c *conn) Local() netpeer.Addr {
	return c.loc
}

func (c *conn) Read(p []byte) (int, error) {
	return c.raw.Read(p)
}

func (c *conn) Write(p []byte) (int, error) {
	return c.raw.Write(p)
}

// Flush is a no-op unless the underlying stream implements its own
// Flush method. Plain TCP/Unix sockets, *tls.Conn and the hybrid
// listener's QUIC stream adapter have none, so for them it does nothing.
func (c *conn) Flush() error {
	if f, ok := c.raw.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// CloseWrite half-closes the write side, signalling EOF to the peer while
// still allowing reads to drain. TCP and Unix stream conns support this
// natively; *tls.Conn sends a close_notify alert instead. A stream without
// a CloseWrite method is closed fully.
func (c *conn) CloseWrite() error {
	if wc, ok := c.raw.(writeCloser); ok {
		return wc.CloseWrite()
	}
	return c.raw.Close()
}

func (c *conn) Close() error {
	return c.raw.Close()
}

// Store associates val with key for the lifetime of the connection.
func (c *conn) Store(key string, val interface{}) {
	c.scoped.Store(key, val)
}

// Load returns the value previously Store'd under key, if any.
func (c *conn) Load(key string) (val interface{}, ok bool) {
	return c.scoped.Load(key)
}
