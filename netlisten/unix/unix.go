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

// Package unix implements the Listen capability over a Unix domain socket
// path. It does not pre-delete an existing path at that location; that
// remains the caller's responsibility, per the core's external-interfaces
// contract.
package unix

import (
	"net"
	"os"

	liberr "github.com/silent-rs/silent/errors"
	libprm "github.com/silent-rs/silent/file/perm"
	"github.com/silent-rs/silent/netlisten"
)

// New binds a Unix domain socket listener at path. When perm is non-zero,
// the socket file mode is changed to perm after bind.
func New(path string, perm libprm.Perm) (netlisten.Listen, liberr.Error) {
	if path == "" {
		return nil, netlisten.ErrorAddressInvalid.Error(nil)
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, netlisten.ErrorBindFailure.Error(liberr.NewErrorTrace(0, err.Error(), "", 0, nil))
	}

	if perm != 0 {
		if e := os.Chmod(path, perm.FileMode()); e != nil {
			_ = l.Close()
			return nil, netlisten.ErrorBindFailure.Error(liberr.NewErrorTrace(0, e.Error(), "", 0, nil))
		}
	}

	return l, nil
}
