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

// Package netlisten defines the Listen capability: the polymorphic contract
// that produces accepted connections. TCP, Unix, TLS-wrapped and hybrid
// QUIC+TCP implementations live in its subpackages; the aggregate that fans
// accept out across many of them lives in netlisten/aggregate.
package netlisten

import (
	"errors"
	"net"
	"syscall"
)

// Listen is the minimal surface every concrete listener (tcp, unix, tls,
// hybrid) must provide. It mirrors net.Listener deliberately: any
// *net.TCPListener or *net.UnixListener already satisfies it.
type Listen interface {
	Accept() (net.Conn, error)
	Addr() net.Addr
	Close() error
}

// Kind classifies an error returned from Accept.
type Kind uint8

const (
	// KindFatal marks an unrecoverable error: the listener removes itself
	// from rotation and reports once.
	KindFatal Kind = iota
	// KindTransient marks an error expected to resolve without operator
	// intervention (too many open files, connection reset during accept,
	// no buffer space); triggers backoff, not removal.
	KindTransient
	// KindShutdown marks clean closure because the listener was closed as
	// part of coordinated shutdown.
	KindShutdown
)

// Classify maps an Accept error to a Kind. The errnos EAGAIN, EMFILE,
// ENFILE, ENOBUFS and ECONNABORTED are transient, as is a non-errno
// net.Error that reports a timeout; every other error is fatal.
// net.ErrClosed is recognized as the shutdown sentinel regardless of
// platform.
func Classify(err error) Kind {
	if err == nil {
		return KindFatal
	}

	if errors.Is(err, net.ErrClosed) {
		return KindShutdown
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.EMFILE, syscall.ENFILE, syscall.ENOBUFS, syscall.ECONNABORTED:
			return KindTransient
		}
		return KindFatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}

	return KindFatal
}
