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

package netserver

import (
	"time"

	"github.com/go-playground/validator/v10"

	liberr "github.com/silent-rs/silent/errors"
)

// RateLimiterConfig holds the token-bucket admission-control tunables. A nil
// *RateLimiterConfig on Config means rate limiting is disabled: every
// accepted connection is dispatched unconditionally.
type RateLimiterConfig struct {
	Capacity       int           `validate:"required,gte=1"`
	RefillInterval time.Duration `validate:"required,gt=0"`
	MaxWait        time.Duration `validate:"gte=0"`
}

// ShutdownConfig holds the graceful-shutdown tunables.
type ShutdownConfig struct {
	GraceWait time.Duration `validate:"gte=0"`
}

var validate = validator.New()

// Validate runs struct-tag validation over the rate-limiter and shutdown
// tunables actually present, the way the teacher's pool configs validate
// their own sub-objects before a listener is ever bound.
func (c *Config) Validate() liberr.Error {
	if c.RateLimiter != nil {
		if err := validate.Struct(c.RateLimiter); err != nil {
			e := ErrorConfigValidate.Error(nil)
			e.Add(err)
			return e
		}
	}

	if err := validate.Struct(&c.Shutdown); err != nil {
		e := ErrorConfigValidate.Error(nil)
		e.Add(err)
		return e
	}

	if len(c.binds) == 0 && len(c.unixBinds) == 0 && len(c.custom) == 0 && c.requireExplicitBind {
		return ErrorNoListenerBound.Error(nil)
	}

	return nil
}
