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

// Package logger provides the structured logging surface used by every
// netserver subpackage: a logrus-backed Logger and a chainable Entry builder.
// It intentionally carries only the load-bearing shape of the wider teacher
// logger tree (level + entry), not its multi-hook fan-out.
package logger

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	logent "github.com/silent-rs/silent/logger/entry"
	loglvl "github.com/silent-rs/silent/logger/level"
)

type Logger interface {
	SetLevel(lvl loglvl.Level)
	Entry(lvl loglvl.Level, msg string) logent.Entry
}

type lgr struct {
	out atomic.Value
}

// New returns a Logger writing through its own logrus.Logger (text
// formatter with full timestamps), with the given minimum level applied.
func New(lvl loglvl.Level) Logger {
	l := &lgr{}
	r := logrus.New()
	r.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	r.SetLevel(lvl.Logrus())
	l.out.Store(r)
	return l
}

func (l *lgr) logrus() *logrus.Logger {
	if v, ok := l.out.Load().(*logrus.Logger); ok && v != nil {
		return v
	}
	return logrus.StandardLogger()
}

func (l *lgr) SetLevel(lvl loglvl.Level) {
	l.logrus().SetLevel(lvl.Logrus())
}

func (l *lgr) Entry(lvl loglvl.Level, msg string) logent.Entry {
	return logent.New(lvl, msg).SetLogger(func() *logrus.Logger {
		return l.logrus()
	})
}
