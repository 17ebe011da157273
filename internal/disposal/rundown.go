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

package disposal

import "sync"

// Rundown guards a collection that is read during normal operation and
// drained during teardown: the per-client channel list, the portal's
// identity map. AcquireShared/AcquireUnique report ok=false once rundown
// has been requested, telling the caller to abort instead of touching the
// collection.
type Rundown struct {
	mu      sync.RWMutex
	flagMu  sync.Mutex
	running bool
}

// AcquireShared takes the read lock unless rundown has already been
// requested, in which case it returns ok=false and no lock is held.
func (r *Rundown) AcquireShared() (unlock func(), ok bool) {
	r.mu.RLock()
	if r.Requested() {
		r.mu.RUnlock()
		return nil, false
	}
	return r.mu.RUnlock, true
}

// AcquireUnique takes the write lock unless rundown has already been
// requested, in which case it returns ok=false and no lock is held.
func (r *Rundown) AcquireUnique() (unlock func(), ok bool) {
	r.mu.Lock()
	if r.Requested() {
		r.mu.Unlock()
		return nil, false
	}
	return r.mu.Unlock, true
}

// AcquireRundown sets the rundown-requested flag and returns the write lock,
// so the caller can drain the collection while refusing any further
// AcquireShared/AcquireUnique callers. The flag is set under a serializing
// inner mutex before the write lock is taken, and AcquireShared/AcquireUnique
// check it only once they hold their own lock, so no racing acquirer can slip
// in between the flag check and the RWMutex acquisition.
func (r *Rundown) AcquireRundown() (unlock func()) {
	r.flagMu.Lock()
	r.running = true
	r.flagMu.Unlock()

	r.mu.Lock()
	return r.mu.Unlock
}

// Requested reports whether rundown has been requested.
func (r *Rundown) Requested() bool {
	r.flagMu.Lock()
	defer r.flagMu.Unlock()
	return r.running
}
