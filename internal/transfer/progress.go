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

// Package transfer implements the source and destination halves of the
// parallel copy engine: file/directory enumeration, atomic-fetch-add block
// dispatch, adaptive block sizing, sendfile-driven sends, and mmap-backed
// receives. It is the busiest component in the program (spec.md §2 puts it
// at roughly 30% of the core), so its exported surface stays small and
// concrete: a Source and a Destination, each driven by InvokeChannel (the
// per-connection data loop) and InvokePortal (the control-connection
// handshake that brackets it).
package transfer

import (
	"sync/atomic"
	"time"
)

// Progress is a throughput snapshot handed to a caller-installed callback.
type Progress struct {
	TotalBytes      uint64
	TransferredSize uint64
}

// ProgressFunc receives throughput snapshots during a transfer. It may be
// called concurrently from any channel goroutine; installations that
// format or render progress should not assume single-threaded delivery
// beyond what the reporter's own busy-flag already guarantees (at most one
// concurrent invocation).
type ProgressFunc func(Progress)

// reporter rate-limits ProgressFunc delivery: a compare-and-swapped busy
// flag lets only one goroutine at a time format a report, a 3-second
// warm-up suppresses noisy early samples, and a 1-report-per-second floor
// keeps a saturated 8-channel transfer from flooding the callback.
type reporter struct {
	cb          ProgressFunc
	total       uint64
	transferred atomic.Uint64
	busy        atomic.Bool
	startedAt   time.Time
	lastReport  atomic.Int64
}

func newReporter(total uint64, cb ProgressFunc) *reporter {
	return &reporter{cb: cb, total: total, startedAt: time.Now()}
}

// add accounts n more transferred bytes and, subject to the warm-up/rate
// limit/busy-flag rules above, invokes the callback.
func (r *reporter) add(n uint64) {
	transferred := r.transferred.Add(n)
	if r.cb == nil {
		return
	}

	if !r.busy.CompareAndSwap(false, true) {
		return
	}
	defer r.busy.Store(false)

	now := time.Now()
	if now.Sub(r.startedAt) < 3*time.Second {
		return
	}
	last := r.lastReport.Load()
	if last != 0 && now.Sub(time.Unix(0, last)) < time.Second {
		return
	}
	r.lastReport.Store(now.UnixNano())

	r.cb(Progress{TotalBytes: r.total, TransferredSize: transferred})
}

func (r *reporter) transferredSize() uint64 {
	return r.transferred.Load()
}
