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

// Gate is a one-shot counting barrier: it releases every waiter once
// Signal has been called target times, or immediately once ForceSignalAll
// has been called (used by teardown paths to unblock waiters that would
// otherwise never see the target reached).
type Gate struct {
	mu      sync.Mutex
	cond    *sync.Cond
	count   int
	target  int
	crossed bool
	init    bool
}

// NewGate returns a Gate that releases its waiters once Signal has been
// called target times. target == 0 releases waiters immediately.
func NewGate(target int) *Gate {
	g := &Gate{target: target, init: true}
	g.cond = sync.NewCond(&g.mu)
	if target <= 0 {
		g.crossed = true
	}
	return g
}

// Initialized reports whether the gate has been constructed via NewGate, so
// teardown paths can avoid touching a zero-value Gate that was never set up.
func (g *Gate) Initialized() bool {
	return g != nil && g.init
}

// Signal increments the gate's counter. Once the counter reaches target,
// every current and future Wait call returns immediately.
func (g *Gate) Signal() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count++
	if g.count >= g.target {
		g.crossed = true
		g.cond.Broadcast()
	}
}

// ForceSignalAll marks the gate crossed without touching the counter,
// releasing every waiter. Used
// by teardown to unblock threads that would otherwise wait forever for a
// count that will never be reached because the transfer is being aborted.
func (g *Gate) ForceSignalAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.crossed = true
	g.cond.Broadcast()
}

// Wait blocks until the gate has crossed its target.
func (g *Gate) Wait() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for !g.crossed {
		g.cond.Wait()
	}
}
