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

// Package netservice defines ConnectionService: the one-operation
// polymorphic contract a caller implements to handle an admitted
// connection. Any function matching HandlerFunc's shape satisfies it
// automatically, without a wrapper type.
package netservice

import (
	"context"

	"github.com/silent-rs/silent/netconn"
	"github.com/silent-rs/silent/netpeer"
)

// ConnectionService is invoked exactly once per admitted connection. It owns
// the Connection for its entire lifetime. Its returned error never
// propagates to the accept loop: the server only logs it and increments a
// counter.
type ConnectionService interface {
	Call(ctx context.Context, c netconn.Connection, peer netpeer.Addr) error
}

// HandlerFunc adapts a plain function to ConnectionService, the way the
// standard library's http.HandlerFunc adapts a function to http.Handler.
type HandlerFunc func(ctx context.Context, c netconn.Connection, peer netpeer.Addr) error

func (f HandlerFunc) Call(ctx context.Context, c netconn.Connection, peer netpeer.Addr) error {
	return f(ctx, c, peer)
}
