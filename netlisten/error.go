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

package netlisten

import "github.com/silent-rs/silent/errors"

const (
	ErrorBindFailure errors.CodeError = iota + errors.MinPkgNetListen
	ErrorAddressInvalid
	ErrorListenerClosed
	ErrorTLSConfigMissing
	ErrorHybridEndpoint
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorBindFailure)
	errors.RegisterIdFctMessage(ErrorBindFailure, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorBindFailure:
		return "unable to bind listener on given address"
	case ErrorAddressInvalid:
		return "given address is invalid for this listener kind"
	case ErrorListenerClosed:
		return "listener is closed"
	case ErrorTLSConfigMissing:
		return "tls listener requires a non-nil tls config"
	case ErrorHybridEndpoint:
		return "hybrid quic+tcp endpoint failed to initialize"
	}

	return ""
}
