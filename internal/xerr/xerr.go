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

// Package xerr classifies the error kinds named in the transfer engine's
// error handling design: configuration, resolution, connection, protocol,
// I/O, filesystem, transfer-logic, and peer-reported errors. It is a
// trimmed version of a general-purpose error-code package, cut down to the
// codes this program actually raises.
package xerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way the propagation policy distinguishes
// them: some kinds abort the process, some fail only the current
// connection/channel, some are fatal bugs.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindResolution
	KindConnection
	KindProtocol
	KindIO
	KindFilesystem
	KindTransferLogic
	KindPeerReported
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindResolution:
		return "resolution"
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindIO:
		return "io"
	case KindFilesystem:
		return "filesystem"
	case KindTransferLogic:
		return "transfer-logic"
	case KindPeerReported:
		return "peer-reported"
	default:
		return "unknown"
	}
}

// Error is the program's error type: a message, a Kind, an optional errno-
// style numeric code (used verbatim for peer-reported errors), and an
// optional parent chain for errors.Is/errors.As compatibility.
type Error struct {
	kind    Kind
	code    int32
	message string
	parent  error
}

// New creates a new Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Newf creates a new Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error of the given kind, chaining parent as its cause.
func Wrap(kind Kind, parent error, message string) *Error {
	return &Error{kind: kind, message: message, parent: parent}
}

// WithCode attaches a numeric errno-style code to the error (used by
// peer-reported errors to carry the remote error_code verbatim).
func (e *Error) WithCode(code int32) *Error {
	e.code = code
	return e
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Code returns the attached numeric code, 0 if none was set.
func (e *Error) Code() int32 {
	return e.code
}

func (e *Error) Error() string {
	if e.parent != nil {
		return fmt.Sprintf("%s: %s: %s", e.kind, e.message, e.parent.Error())
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap lets errors.Is/errors.As walk into the parent error.
func (e *Error) Unwrap() error {
	return e.parent
}

// Is reports whether this error (or its parent chain) matches target's
// Kind, when target is itself an *Error.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.kind == t.kind
	}
	return false
}

// IsKind reports whether err is an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}
