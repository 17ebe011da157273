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
	"log"
	"os"

	"github.com/hashicorp/go-hclog"
)

// hclogAdapter lets a dependency that wants an hclog.Logger write through
// the same Logger every component already logs through, instead of
// standing up a second, independently-configured logger. Nothing in this
// program calls AsHCLog.
type hclogAdapter struct {
	l    Logger
	name string
}

// AsHCLog wraps l as an hclog.Logger.
func AsHCLog(l Logger, name string) hclog.Logger {
	return &hclogAdapter{l: l, name: name}
}

func fieldsFrom(args []interface{}) map[string]any {
	if len(args) == 0 {
		return nil
	}
	fields := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		fields[key] = args[i+1]
	}
	return fields
}

func (h *hclogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		h.l.Debug(msg, fieldsFrom(args))
	case hclog.Info:
		h.l.Info(msg, fieldsFrom(args))
	case hclog.Warn:
		h.l.Warning(msg, fieldsFrom(args))
	case hclog.Error:
		h.l.Error(msg, nil, fieldsFrom(args))
	}
}

func (h *hclogAdapter) Trace(msg string, args ...interface{}) { h.l.Debug(msg, fieldsFrom(args)) }
func (h *hclogAdapter) Debug(msg string, args ...interface{}) { h.l.Debug(msg, fieldsFrom(args)) }
func (h *hclogAdapter) Info(msg string, args ...interface{})  { h.l.Info(msg, fieldsFrom(args)) }
func (h *hclogAdapter) Warn(msg string, args ...interface{})  { h.l.Warning(msg, fieldsFrom(args)) }
func (h *hclogAdapter) Error(msg string, args ...interface{}) { h.l.Error(msg, nil, fieldsFrom(args)) }

func (h *hclogAdapter) IsTrace() bool { return h.l.GetLevel() == DebugLevel }
func (h *hclogAdapter) IsDebug() bool { return h.l.GetLevel() == DebugLevel }
func (h *hclogAdapter) IsInfo() bool  { return h.l.GetLevel() >= InfoLevel }
func (h *hclogAdapter) IsWarn() bool  { return h.l.GetLevel() >= WarnLevel }
func (h *hclogAdapter) IsError() bool { return true }

func (h *hclogAdapter) ImpliedArgs() []interface{} { return nil }

func (h *hclogAdapter) With(args ...interface{}) hclog.Logger {
	return &hclogAdapter{l: h.l.With(fieldsFrom(args)), name: h.name}
}

func (h *hclogAdapter) Name() string { return h.name }

func (h *hclogAdapter) Named(name string) hclog.Logger {
	if h.name == "" {
		return &hclogAdapter{l: h.l, name: name}
	}
	return &hclogAdapter{l: h.l, name: h.name + "." + name}
}

func (h *hclogAdapter) ResetNamed(name string) hclog.Logger {
	return &hclogAdapter{l: h.l, name: name}
}

func (h *hclogAdapter) SetLevel(level hclog.Level) {
	switch level {
	case hclog.Trace, hclog.Debug:
		h.l.SetLevel(DebugLevel)
	case hclog.Warn:
		h.l.SetLevel(WarnLevel)
	case hclog.Error:
		h.l.SetLevel(ErrorLevel)
	default:
		h.l.SetLevel(InfoLevel)
	}
}

func (h *hclogAdapter) GetLevel() hclog.Level {
	switch h.l.GetLevel() {
	case DebugLevel:
		return hclog.Debug
	case WarnLevel:
		return hclog.Warn
	case ErrorLevel:
		return hclog.Error
	default:
		return hclog.Info
	}
}

func (h *hclogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(hclog.DefaultOutput, "", 0)
}

func (h *hclogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) *os.File {
	return os.Stderr
}
