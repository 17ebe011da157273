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

// Package xlog is a trimmed version of a general-purpose structured
// logger, cut down to what -q/-v verbosity and a stderr sink need (there is
// no file or syslog sink): level filtering, color on an interactive
// terminal, a stable Logger interface
// every component logs through, and an hclog adapter for any dependency
// that wants one.
package xlog

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus.Level's ordering but stays the program's own type so
// callers never import logrus directly.
type Level uint8

const (
	ErrorLevel Level = iota
	WarnLevel
	InfoLevel
	DebugLevel
)

// FromVerbosity maps the CLI's repeated -v/-q counting (positive = more
// verbose, negative = more quiet) onto a Level, with InfoLevel as the
// zero point.
func FromVerbosity(v int) Level {
	switch {
	case v <= -1:
		return ErrorLevel
	case v == 0:
		return InfoLevel
	case v == 1:
		return DebugLevel
	default:
		return DebugLevel
	}
}

// String renders the level the way the CLI and log lines display it.
func (l Level) String() string {
	switch l {
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	default:
		return "unknown"
	}
}

// Parse parses a level name case-insensitively, defaulting to InfoLevel for
// anything unrecognized.
func Parse(s string) Level {
	switch strings.ToLower(s) {
	case "error":
		return ErrorLevel
	case "warn", "warning":
		return WarnLevel
	case "debug", "trace":
		return DebugLevel
	default:
		return InfoLevel
	}
}

func (l Level) logrus() logrus.Level {
	switch l {
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case InfoLevel:
		return logrus.InfoLevel
	case DebugLevel:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}
