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

package transfer

const (
	// MinBlockSize is the adaptive sizer's floor, also the alignment unit
	// every adaptive block size is rounded up to.
	MinBlockSize uint64 = 64 * 1024
	// MaxBlockSize is the adaptive sizer's ceiling and the largest block
	// size a fixed -B flag may request.
	MaxBlockSize uint64 = 1 << 30
	// initialBlockSize is where every channel's adaptive sizer starts.
	initialBlockSize uint64 = 1 << 20
	// targetMicros is the wall-clock duration, in microseconds, a single
	// sendfile call should take once the sizer has converged.
	targetMicros = 1_000_000
)

// clampBlockSize rounds b up to a MinBlockSize multiple and clamps it to
// [MinBlockSize, MaxBlockSize].
func clampBlockSize(b uint64) uint64 {
	if b < MinBlockSize {
		return MinBlockSize
	}
	rounded := ((b + MinBlockSize - 1) / MinBlockSize) * MinBlockSize
	if rounded > MaxBlockSize {
		return MaxBlockSize
	}
	return rounded
}

// adjustBlockSize computes the next block size given the current one and
// the observed duration of the last sendfile call, in microseconds, per
// spec.md §4.3's three-branch adaptive formula.
func adjustBlockSize(current uint64, observedMicros int64) uint64 {
	var next float64

	switch {
	case observedMicros <= 0:
		next = float64(current) * 2
	case observedMicros <= targetMicros:
		next = float64(current) * float64(targetMicros) / float64(observedMicros)
	default:
		next = 0.8*float64(current) + 0.2*(float64(current)*float64(targetMicros)/float64(observedMicros))
	}

	if next < 0 {
		next = float64(MinBlockSize)
	}
	return clampBlockSize(uint64(next))
}
