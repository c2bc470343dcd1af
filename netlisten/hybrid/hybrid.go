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

// Package hybrid implements a Listen whose single endpoint yields both
// stream-oriented (TCP) and datagram-oriented (QUIC) connections on the
// same port number: a plain TCP listener and a QUIC transport share one
// logical accept rotation. Each admitted QUIC connection's first
// bidirectional stream is adapted to net.Conn so the rest of the core never
// has to know the transport underneath.
package hybrid

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	quic "github.com/quic-go/quic-go"

	liberr "github.com/silent-rs/silent/errors"
	"github.com/silent-rs/silent/netlisten"
)

type listener struct {
	tcp  net.Listener
	quic *quic.Listener
	pc   net.PacketConn

	next chan acceptResult
	done chan struct{}
}

type acceptResult struct {
	conn net.Conn
	err  error
}

// New binds both a TCP listener and a QUIC transport on address (the TCP
// port and the UDP port share the same number). tlsCfg must negotiate an
// application protocol QUIC accepts (NextProtos non-empty).
func New(address string, tlsCfg *tls.Config) (netlisten.Listen, liberr.Error) {
	if tlsCfg == nil {
		return nil, netlisten.ErrorTLSConfigMissing.Error(nil)
	}

	tl, err := net.Listen("tcp", address)
	if err != nil {
		return nil, netlisten.ErrorBindFailure.Error(liberr.NewErrorTrace(0, err.Error(), "", 0, nil))
	}

	pc, err := net.ListenPacket("udp", address)
	if err != nil {
		_ = tl.Close()
		return nil, netlisten.ErrorHybridEndpoint.Error(liberr.NewErrorTrace(0, err.Error(), "", 0, nil))
	}

	ql, err := quic.Listen(pc, tlsCfg, nil)
	if err != nil {
		_ = tl.Close()
		_ = pc.Close()
		return nil, netlisten.ErrorHybridEndpoint.Error(liberr.NewErrorTrace(0, err.Error(), "", 0, nil))
	}

	l := &listener{
		tcp:  tl,
		quic: ql,
		pc:   pc,
		next: make(chan acceptResult),
		done: make(chan struct{}),
	}

	go l.pumpTCP()
	go l.pumpQUIC()

	return l, nil
}

func (l *listener) pumpTCP() {
	for {
		c, err := l.tcp.Accept()
		select {
		case l.next <- acceptResult{conn: c, err: err}:
		case <-l.done:
			if c != nil {
				_ = c.Close()
			}
			return
		}
		if err != nil {
			return
		}
	}
}

func (l *listener) pumpQUIC() {
	for {
		qc, err := l.quic.Accept(context.Background())
		if err != nil {
			select {
			case l.next <- acceptResult{err: err}:
			case <-l.done:
			}
			return
		}

		str, err := qc.AcceptStream(context.Background())
		if err != nil {
			select {
			case l.next <- acceptResult{err: err}:
			case <-l.done:
				return
			}
			continue
		}

		c := &streamConn{stream: str, conn: qc}

		select {
		case l.next <- acceptResult{conn: c}:
		case <-l.done:
			_ = c.Close()
			return
		}
	}
}

func (l *listener) Accept() (net.Conn, error) {
	select {
	case r := <-l.next:
		return r.conn, r.err
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *listener) Addr() net.Addr {
	return l.tcp.Addr()
}

func (l *listener) Close() error {
	select {
	case <-l.done:
		return nil
	default:
		close(l.done)
	}
	_ = l.tcp.Close()
	_ = l.quic.Close()
	return l.pc.Close()
}

// streamConn adapts a QUIC bidirectional stream plus its owning connection
// to net.Conn.
type streamConn struct {
	stream quic.Stream
	conn   quic.Connection
}

func (s *streamConn) Read(p []byte) (int, error)  { return s.stream.Read(p) }
func (s *streamConn) Write(p []byte) (int, error) { return s.stream.Write(p) }
func (s *streamConn) Close() error {
	_ = s.stream.Close()
	return nil
}
func (s *streamConn) LocalAddr() net.Addr  { return s.conn.LocalAddr() }
func (s *streamConn) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *streamConn) SetDeadline(t time.Time) error {
	if err := s.stream.SetReadDeadline(t); err != nil {
		return err
	}
	return s.stream.SetWriteDeadline(t)
}

func (s *streamConn) SetReadDeadline(t time.Time) error  { return s.stream.SetReadDeadline(t) }
func (s *streamConn) SetWriteDeadline(t time.Time) error { return s.stream.SetWriteDeadline(t) }
