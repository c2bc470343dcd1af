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

// Package tcp implements the Listen capability over TCP v4/v6, matching the
// multi-family surface (tcp/tcp4/tcp6) the teacher's socket config exposes.
package tcp

import (
	"net"

	liberr "github.com/silent-rs/silent/errors"
	"github.com/silent-rs/silent/netlisten"
	libptc "github.com/silent-rs/silent/network/protocol"
)

// New binds a TCP listener on the given address. network must be one of
// NetworkTCP, NetworkTCP4, NetworkTCP6.
func New(network libptc.NetworkProtocol, address string) (netlisten.Listen, liberr.Error) {
	switch network {
	case libptc.NetworkTCP, libptc.NetworkTCP4, libptc.NetworkTCP6:
	default:
		return nil, netlisten.ErrorAddressInvalid.Error(nil)
	}

	l, err := net.Listen(network.String(), address)
	if err != nil {
		return nil, netlisten.ErrorBindFailure.Error(liberr.NewErrorTrace(0, err.Error(), "", 0, nil))
	}

	return l, nil
}
