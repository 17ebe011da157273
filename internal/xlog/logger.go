/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package xlog

import (
	"io"
	"os"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// Logger is the interface every component logs through. fields carries
// structured key/value context (client identity, channel index, transfer
// direction); components that have none pass nil.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warning(msg string, fields map[string]any)
	Error(msg string, err error, fields map[string]any)
	// With returns a Logger that prefixes every future call with the
	// given fields merged on top of this Logger's own.
	With(fields map[string]any) Logger
	SetLevel(Level)
	GetLevel() Level
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger backed by logrus. When color is true and stdout/
// stderr is a terminal, output is colorized via fatih/color's TTY
// detection and written through mattn/go-colorable so Windows consoles
// that don't natively understand ANSI still render it.
func New(level Level, colorized bool) Logger {
	l := logrus.New()
	l.SetLevel(level.logrus())

	var out io.Writer = os.Stderr
	formatter := &logrus.TextFormatter{FullTimestamp: true}
	if colorized && color.NoColor == false {
		out = colorable.NewColorableStderr()
		formatter.ForceColors = true
	} else {
		formatter.DisableColors = true
	}
	l.SetOutput(out)
	l.SetFormatter(formatter)

	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(msg string, fields map[string]any) {
	l.withFields(fields).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields map[string]any) {
	l.withFields(fields).Info(msg)
}

func (l *logrusLogger) Warning(msg string, fields map[string]any) {
	l.withFields(fields).Warn(msg)
}

func (l *logrusLogger) Error(msg string, err error, fields map[string]any) {
	e := l.withFields(fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(msg)
}

func (l *logrusLogger) With(fields map[string]any) Logger {
	return &logrusLogger{entry: l.withFields(fields)}
}

func (l *logrusLogger) withFields(fields map[string]any) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	return l.entry.WithFields(logrus.Fields(fields))
}

func (l *logrusLogger) SetLevel(lv Level) {
	l.entry.Logger.SetLevel(lv.logrus())
}

func (l *logrusLogger) GetLevel() Level {
	switch l.entry.Logger.GetLevel() {
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.DebugLevel, logrus.TraceLevel:
		return DebugLevel
	default:
		return InfoLevel
	}
}

// Nop is a Logger that discards everything, used by components under test
// that don't want to wire a real sink.
var Nop Logger = &logrusLogger{entry: func() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}()}
