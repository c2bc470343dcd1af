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

// Package entry implements the chainable structured log entry builder shared
// by every netserver subpackage.
package entry

import (
	"github.com/sirupsen/logrus"

	loglvl "github.com/silent-rs/silent/logger/level"
)

type Entry interface {
	SetLogger(fct func() *logrus.Logger) Entry
	Field(key string, val interface{}) Entry
	ErrorAdd(critical bool, err error) Entry
	Log()
}

type entry struct {
	logger func() *logrus.Logger
	level  loglvl.Level
	msg    string
	fields logrus.Fields
	errs   []error
}

func New(lvl loglvl.Level, msg string) Entry {
	return &entry{
		level:  lvl,
		msg:    msg,
		fields: make(logrus.Fields),
	}
}

func (e *entry) SetLogger(fct func() *logrus.Logger) Entry {
	e.logger = fct
	return e
}

func (e *entry) Field(key string, val interface{}) Entry {
	e.fields[key] = val
	return e
}

func (e *entry) ErrorAdd(critical bool, err error) Entry {
	if err == nil {
		return e
	}

	e.errs = append(e.errs, err)

	if critical && e.level < loglvl.ErrorLevel {
		e.level = loglvl.ErrorLevel
	}

	return e
}

func (e *entry) Log() {
	var l *logrus.Logger

	if e.logger != nil {
		l = e.logger()
	}
	if l == nil {
		l = logrus.StandardLogger()
	}

	fields := e.fields
	if len(e.errs) == 1 {
		fields["error"] = e.errs[0].Error()
	} else if len(e.errs) > 1 {
		msgs := make([]string, 0, len(e.errs))
		for _, er := range e.errs {
			msgs = append(msgs, er.Error())
		}
		fields["errors"] = msgs
	}

	l.WithFields(fields).Log(e.level.Logrus(), e.msg)
}
