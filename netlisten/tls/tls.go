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

// Package tls wraps any base Listen so that every accepted connection is
// returned as a TLS server connection. The handshake is not run inside
// Accept: it runs lazily on the connection's first Read, Write or Handshake
// call.
package tls

import (
	"crypto/tls"
	"net"

	liblcr "github.com/silent-rs/silent/certificates"
	liberr "github.com/silent-rs/silent/errors"
	"github.com/silent-rs/silent/netlisten"
)

type listener struct {
	base netlisten.Listen
	cfg  *tls.Config
}

// Wrap takes ownership of base and returns a Listen whose Accept wraps the
// base connection in a TLS server connection and returns it without
// handshaking; the handshake happens on first use. serverName selects the
// certificate pair via cfg.TlsConfig when cfg serves multiple SNI names.
func Wrap(base netlisten.Listen, cfg liblcr.TLSConfig, serverName string) (netlisten.Listen, liberr.Error) {
	if cfg == nil {
		return nil, netlisten.ErrorTLSConfigMissing.Error(nil)
	}

	tc := cfg.TlsConfig(serverName)
	if tc == nil {
		return nil, netlisten.ErrorTLSConfigMissing.Error(nil)
	}

	return &listener{base: base, cfg: tc}, nil
}

func (l *listener) Accept() (net.Conn, error) {
	c, err := l.base.Accept()
	if err != nil {
		return nil, err
	}
	return tls.Server(c, l.cfg), nil
}

func (l *listener) Addr() net.Addr {
	return l.base.Addr()
}

func (l *listener) Close() error {
	return l.base.Close()
}
