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

import (
	"log"

	"github.com/leo-levin/weft/ir"
)

// Manager owns every cache descriptor's live buffers and implements the
// per-tick ring update. Buffers are keyed by ir.CacheID so they survive
// backend reallocation: descriptor table
// indices may be rebuilt on recompile, but a cache's identity (and
// therefore its state) does not change underneath it.
type Manager struct {
	table   *Table
	visual  map[ir.CacheID]*VisualBuffer
	audio   map[ir.CacheID]*AudioBuffer
	failed  map[ir.CacheID]bool
	lastDim map[ir.CacheID][2]int // last allocated (W, H), visual only
}

// NewManager allocates buffers for every descriptor in t. w, h size the
// visual-domain buffers (ignored for audio descriptors).
func NewManager(t *Table, w, h int) *Manager {
	m := &Manager{
		table:   t,
		visual:  map[ir.CacheID]*VisualBuffer{},
		audio:   map[ir.CacheID]*AudioBuffer{},
		failed:  map[ir.CacheID]bool{},
		lastDim: map[ir.CacheID][2]int{},
	}
	for _, d := range t.Descriptors {
		m.allocate(d, w, h)
	}
	return m
}

func (m *Manager) allocate(d *Descriptor, w, h int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("cache: allocation failed for %s.%d (%s): %v", d.Bundle, d.StrandIndex, d.ID, r)
			m.failed[d.ID] = true
		}
	}()
	switch d.Domain {
	case DomainAudio:
		m.audio[d.ID] = NewAudioBuffer(d.HistorySize)
	case DomainVisual:
		m.visual[d.ID] = NewVisualBuffer(w, h, d.HistorySize)
		m.lastDim[d.ID] = [2]int{w, h}
	}
}

// Reallocate rebuilds every visual-domain buffer for new dimensions,
// dropping prior history — there is no principled way to resample a
// delay line across a resolution change.
func (m *Manager) Reallocate(w, h int) {
	for _, d := range m.table.Descriptors {
		if d.Domain != DomainVisual {
			continue
		}
		if dim, ok := m.lastDim[d.ID]; ok && dim == [2]int{w, h} {
			continue
		}
		m.allocate(d, w, h)
	}
}

// TickAudio advances descriptor id's ring for the audio domain given
// this tick's freshly evaluated value and signal (write if the signal
// changed, advance the write index, then read back the tap), and
// returns the tap read. Missing/failed
// buffers pass the input value through unchanged rather than panic (an
// audio callback must never crash).
func (m *Manager) TickAudio(id ir.CacheID, tapIndex int, value, signal float64) float64 {
	b, ok := m.audio[id]
	if !ok || m.failed[id] {
		return value
	}
	h := b.HistorySize
	writeIdx := int(b.History[h])
	prev := b.Signal
	shouldTick := isNaN(prev) || prev != signal
	if shouldTick {
		b.Signal = signal
		b.History[writeIdx] = value
		writeIdx = (writeIdx + 1) % h
		b.History[h] = float64(writeIdx)
	}
	readIdx := ((writeIdx-1-tapIndex)%h + 2*h) % h
	return b.History[readIdx]
}

// TickVisual is TickAudio's per-coordinate analogue: an independent
// ring per (x, y) output coordinate.
func (m *Manager) TickVisual(id ir.CacheID, tapIndex, x, y int, value, signal float64) float64 {
	b, ok := m.visual[id]
	if !ok || m.failed[id] {
		return value
	}
	if x < 0 || x >= b.W || y < 0 || y >= b.H {
		return value
	}
	h := b.HistorySize
	coord := b.coordIndex(x, y)
	base := coord * h
	prev := b.Signal[coord]
	shouldTick := isNaN(prev) || prev != signal

	writeIdx := b.writeIdx[coord]
	if shouldTick {
		b.Signal[coord] = signal
		b.History[base+writeIdx] = value
		writeIdx = (writeIdx + 1) % h
		b.writeIdx[coord] = writeIdx
	}
	readIdx := ((writeIdx-1-tapIndex)%h + 2*h) % h
	return b.History[base+readIdx]
}

func isNaN(f float64) bool { return f != f }
