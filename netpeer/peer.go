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

// Package netpeer carries the immutable peer identity attached to every
// dispatched connection: an IPv4/IPv6 socket address or a Unix domain path.
package netpeer

import (
	"net"

	libptc "github.com/silent-rs/silent/network/protocol"
)

type Addr struct {
	network libptc.NetworkProtocol
	address string
}

// FromNetAddr builds a Addr from a net.Addr, classifying it by the
// net.Addr.Network() string ("tcp", "tcp4", "tcp6", "unix", ...).
func FromNetAddr(a net.Addr) Addr {
	if a == nil {
		return Addr{}
	}
	return Addr{
		network: libptc.Parse(a.Network()),
		address: a.String(),
	}
}

func New(network libptc.NetworkProtocol, address string) Addr {
	return Addr{network: network, address: address}
}

func (p Addr) Network() string {
	return p.network.String()
}

func (p Addr) String() string {
	return p.address
}

func (p Addr) IsUnix() bool {
	return p.network == libptc.NetworkUnix || p.network == libptc.NetworkUnixGram
}

func (p Addr) IsZero() bool {
	return p.address == "" && p.network == libptc.NetworkEmpty
}
