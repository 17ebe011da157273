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

// Package disposal provides the teardown primitives shared by every
// long-lived object in the core: an idempotent, thread-safe Disposer, a
// rundown-protected collection guard, and a one-shot counting gate.
//
// Structured cleanup without destructors needs an explicit state machine:
// a three-state atomic (NORMAL/DISPOSING/DISPOSED) collapses to one CAS
// guarding a single teardown function, and one RWMutex plus a closed flag
// gives rundown protection — idempotent dispose, reader/writer exclusion
// that refuses new entries once torn down, bounded-wait joins.
package disposal

import (
	"sync"
	"sync/atomic"
)

const (
	stateNormal int32 = iota
	stateDisposing
	stateDisposed
)

// Disposer runs a teardown function exactly once, regardless of how many
// goroutines call Dispose concurrently. Callers that lose the race block
// until the winner's teardown has completed.
type Disposer struct {
	state int32
	done  chan struct{}
	once  sync.Once
}

// NewDisposer returns a ready-to-use Disposer.
func NewDisposer() *Disposer {
	return &Disposer{done: make(chan struct{})}
}

// Dispose runs teardown exactly once. Concurrent and repeated calls are
// safe; all but the first block until the first's teardown has returned.
func (d *Disposer) Dispose(teardown func()) {
	if atomic.CompareAndSwapInt32(&d.state, stateNormal, stateDisposing) {
		if teardown != nil {
			teardown()
		}
		atomic.StoreInt32(&d.state, stateDisposed)
		close(d.done)
		return
	}

	<-d.done
}

// AsyncDispose runs teardown on a fresh goroutine, so a caller running
// inside one of the component's own worker goroutines can request disposal
// without deadlocking against its own join. If wait is true, AsyncDispose
// blocks until teardown has completed.
func (d *Disposer) AsyncDispose(teardown func(), wait bool) {
	if wait {
		d.Dispose(teardown)
		return
	}

	go d.Dispose(teardown)
}

// Disposed reports whether teardown has completed.
func (d *Disposer) Disposed() bool {
	return atomic.LoadInt32(&d.state) == stateDisposed
}

// Disposing reports whether teardown is in progress or complete.
func (d *Disposer) Disposing() bool {
	return atomic.LoadInt32(&d.state) != stateNormal
}
