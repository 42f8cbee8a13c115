// Copyright (C) 2026 Leo Levin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package cache

import "math"

// VisualBuffer is one cache descriptor's visual-domain storage: an
// independent ring per output coordinate, W*H*historySize floats of
// history plus a W*H float signal buffer. writeIdx tracks each
// coordinate's own ring write position; unlike the audio domain (whose
// single shared ring packs its write index into an extra history slot
// specifically to dodge a lookup in its real-time hot path) a per-pixel
// lookup here is unavoidable regardless, so it is simplest to track
// plainly alongside the two buffers rather than force the packing trick
// onto W*H independent rings.
type VisualBuffer struct {
	W, H        int
	HistorySize int
	History     []float64 // (y*W+x)*HistorySize + ringSlot
	Signal      []float64 // y*W+x
	writeIdx    []int     // y*W+x
}

// NewVisualBuffer allocates a zero-filled history and a NaN-filled
// signal buffer so the first per-coordinate comparison always ticks.
func NewVisualBuffer(w, h, historySize int) *VisualBuffer {
	b := &VisualBuffer{
		W: w, H: h, HistorySize: historySize,
		History:  make([]float64, w*h*historySize),
		Signal:   make([]float64, w*h),
		writeIdx: make([]int, w*h),
	}
	for i := range b.Signal {
		b.Signal[i] = math.NaN()
	}
	return b
}

func (b *VisualBuffer) coordIndex(x, y int) int { return y*b.W + x }

// AudioBuffer is one cache descriptor's audio-domain storage: a single
// shared ring of historySize+1 floats plus a one-float signal. The
// extra history slot stores the write index as a float.
type AudioBuffer struct {
	HistorySize int
	History     []float64 // [0:HistorySize) ring, [HistorySize] write index
	Signal      float64
}

// NewAudioBuffer allocates a zero-filled ring with signal NaN so the
// first tick always advances.
func NewAudioBuffer(historySize int) *AudioBuffer {
	return &AudioBuffer{
		HistorySize: historySize,
		History:     make([]float64, historySize+1),
		Signal:      math.NaN(),
	}
}
